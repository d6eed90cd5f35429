package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"github.com/windson/bda-usecases/internal/integrations/dataautomation"
)

type processCall struct {
	inputURI  string
	outputURI string
	blueprint string
}

type fakeProcessor struct {
	calls      []processCall
	invokeErrs []error
	invokeIdx  int
	status     dataautomation.JobStatus
	waitErr    error
	waitedARN  string
	waitedMax  time.Duration
}

func (f *fakeProcessor) ProcessDocument(_ context.Context, inputURI, outputURI, blueprintARN string) (string, error) {
	f.calls = append(f.calls, processCall{inputURI: inputURI, outputURI: outputURI, blueprint: blueprintARN})
	var err error
	if f.invokeIdx < len(f.invokeErrs) {
		err = f.invokeErrs[f.invokeIdx]
	}
	f.invokeIdx++
	if err != nil {
		return "", err
	}
	return "arn:inv", nil
}

func (f *fakeProcessor) WaitForCompletion(_ context.Context, arn string, maxWait time.Duration) (dataautomation.JobStatus, error) {
	f.waitedARN = arn
	f.waitedMax = maxWait
	return f.status, f.waitErr
}

func s3Event(keys ...string) events.S3Event {
	var records []events.S3EventRecord
	for _, k := range keys {
		records = append(records, events.S3EventRecord{
			S3: events.S3Entity{
				Bucket: events.S3Bucket{Name: "bda-docs"},
				Object: events.S3Object{Key: k},
			},
		})
	}
	return events.S3Event{Records: records}
}

func newTestHandler(t *testing.T, proc Processor) (*Handler, *[]time.Duration) {
	t.Helper()
	h, err := NewHandler(proc, "arn:bp", time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	var slept []time.Duration
	h.sleep = func(d time.Duration) { slept = append(slept, d) }
	return h, &slept
}

func decodeBody(t *testing.T, resp Response) responseBody {
	t.Helper()
	var body responseBody
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body
}

func TestHandle_ProcessesInputRecord(t *testing.T) {
	proc := &fakeProcessor{status: dataautomation.JobStatus{Status: "Success"}}
	h, _ := newTestHandler(t, proc)

	resp, err := h.Handle(context.Background(), s3Event("input/20260301-100000_resume.pdf"))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, 1, body.ProcessedFiles)
	require.Equal(t, "output/20260301-100000_resume/", body.Results[0].OutputPath)
	require.Equal(t, "Success", body.Results[0].Status)
	require.Equal(t, "arn:inv", body.Results[0].InvocationARN)

	require.Equal(t, "s3://bda-docs/input/20260301-100000_resume.pdf", proc.calls[0].inputURI)
	require.Equal(t, "s3://bda-docs/output/20260301-100000_resume/job_metadata.json", proc.calls[0].outputURI)
	require.Equal(t, "arn:bp", proc.calls[0].blueprint)
	require.Equal(t, time.Minute, proc.waitedMax)
}

func TestHandle_SkipsKeysOutsideInput(t *testing.T) {
	proc := &fakeProcessor{status: dataautomation.JobStatus{Status: "Success"}}
	h, _ := newTestHandler(t, proc)

	resp, err := h.Handle(context.Background(), s3Event(
		"output/20260301-100000_resume/result.json",
		"config/schema.json",
	))
	require.NoError(t, err)
	require.Equal(t, 0, decodeBody(t, resp).ProcessedFiles)
	require.Empty(t, proc.calls)
}

func TestHandle_UnescapesKeys(t *testing.T) {
	proc := &fakeProcessor{status: dataautomation.JobStatus{Status: "Success"}}
	h, _ := newTestHandler(t, proc)

	resp, err := h.Handle(context.Background(), s3Event("input/my+resume%282%29.pdf"))
	require.NoError(t, err)

	body := decodeBody(t, resp)
	require.Equal(t, "input/my resume(2).pdf", body.Results[0].InputFile)
	require.Equal(t, "output/my resume(2)/", body.Results[0].OutputPath)
}

func TestHandle_RetriesWithBackoff(t *testing.T) {
	proc := &fakeProcessor{
		invokeErrs: []error{errors.New("throttled"), errors.New("throttled"), nil},
		status:     dataautomation.JobStatus{Status: "Success"},
	}
	h, slept := newTestHandler(t, proc)

	resp, err := h.Handle(context.Background(), s3Event("input/a.pdf"))
	require.NoError(t, err)

	body := decodeBody(t, resp)
	require.Empty(t, body.Results[0].Error)
	require.Equal(t, "Success", body.Results[0].Status)
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
	require.Len(t, proc.calls, 3)
}

func TestHandle_GivesUpAfterMaxAttempts(t *testing.T) {
	proc := &fakeProcessor{
		invokeErrs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")},
	}
	h, slept := newTestHandler(t, proc)

	resp, err := h.Handle(context.Background(), s3Event("input/a.pdf"))
	// Per-record failures land in the body, not the function error.
	require.NoError(t, err)

	body := decodeBody(t, resp)
	require.Equal(t, 1, body.ProcessedFiles)
	require.Contains(t, body.Results[0].Error, "boom")
	require.Len(t, *slept, 2)
	require.Len(t, proc.calls, 3)
}

func TestDeriveOutputPath_CutsAtFirstDot(t *testing.T) {
	require.Equal(t, "output/cv/", deriveOutputPath("input/cv.tar.gz"))
	require.Equal(t, "output/20260301-100000_cv/", deriveOutputPath("input/20260301-100000_cv.pdf"))
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(nil, "arn:bp", 0, nil)
	require.Error(t, err)
	_, err = NewHandler(&fakeProcessor{}, "  ", 0, nil)
	require.Error(t, err)
}
