// Package preview lifts a couple of display fields out of a downloaded
// result artifact. It is best-effort by contract: any malformed or missing
// input yields a zero preview, never an error, so it can never change a
// workflow outcome.
package preview

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/windson/bda-usecases/internal/domain"
)

// maxDepth bounds the search through nested inference output.
const maxDepth = 6

// FromFile extracts a preview from the result JSON at path.
func FromFile(path string) domain.Preview {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Preview{}
	}
	return FromJSON(data)
}

// FromJSON extracts a preview from raw result JSON. The extraction service
// nests fields under inference_result with a blueprint-defined shape, so the
// lookup searches by key name rather than a fixed path.
func FromJSON(data []byte) domain.Preview {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Preview{}
	}

	root := doc
	if inner, ok := doc["inference_result"].(map[string]any); ok {
		root = inner
	}
	return domain.Preview{
		FullName: findString(root, "full_name", maxDepth),
		Email:    findString(root, "email", maxDepth),
	}
}

// findString returns the first non-empty string under the given key,
// searching breadth-first through nested objects.
func findString(node map[string]any, key string, depth int) string {
	if depth <= 0 {
		return ""
	}
	if v, ok := node[key].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	for _, v := range node {
		child, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if s := findString(child, key, depth-1); s != "" {
			return s
		}
	}
	return ""
}
