package preview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromJSON_TopLevelInferenceResult(t *testing.T) {
	p := FromJSON([]byte(`{
		"matched_blueprint": {"arn": "arn:bp"},
		"inference_result": {"full_name": "Ada Lovelace", "email": "ada@example.com"}
	}`))
	require.Equal(t, "Ada Lovelace", p.FullName)
	require.Equal(t, "ada@example.com", p.Email)
	require.False(t, p.Empty())
}

func TestFromJSON_NestedFields(t *testing.T) {
	p := FromJSON([]byte(`{
		"inference_result": {
			"personal_details": {"full_name": "Ada Lovelace"},
			"contact_information": {"email": "ada@example.com"}
		}
	}`))
	require.Equal(t, "Ada Lovelace", p.FullName)
	require.Equal(t, "ada@example.com", p.Email)
}

func TestFromJSON_Malformed(t *testing.T) {
	require.True(t, FromJSON([]byte(`{"inference_result": `)).Empty())
	require.True(t, FromJSON([]byte(`[1,2,3]`)).Empty())
}

func TestFromJSON_MissingFields(t *testing.T) {
	p := FromJSON([]byte(`{"inference_result": {"skills": ["go"]}}`))
	require.True(t, p.Empty())
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"full_name": "Ada Lovelace"}`), 0o644))

	p := FromFile(path)
	require.Equal(t, "Ada Lovelace", p.FullName)
	require.Empty(t, p.Email)
}

func TestFromFile_Missing(t *testing.T) {
	require.True(t, FromFile(filepath.Join(t.TempDir(), "nope.json")).Empty())
}
