// Package handler processes S3 event notifications for uploaded documents:
// each object written under input/ is handed to the managed extraction
// service, and the handler waits for the invocation to finish so failures
// land in this function's own log stream.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/windson/bda-usecases/internal/integrations/dataautomation"
)

const (
	inputPrefix  = "input/"
	outputPrefix = "output/"

	defaultMaxAttempts = 3
)

// Processor is the extraction capability the handler needs.
type Processor interface {
	ProcessDocument(ctx context.Context, inputURI, outputURI, blueprintARN string) (string, error)
	WaitForCompletion(ctx context.Context, invocationARN string, maxWait time.Duration) (dataautomation.JobStatus, error)
}

// Response mirrors the shape the original operator tooling expects back
// from the function.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type recordResult struct {
	InputFile     string `json:"input_file"`
	OutputPath    string `json:"output_path,omitempty"`
	Status        string `json:"status,omitempty"`
	InvocationARN string `json:"invocation_arn,omitempty"`
	Error         string `json:"error,omitempty"`
}

type responseBody struct {
	ProcessedFiles int            `json:"processed_files"`
	Results        []recordResult `json:"results"`
}

// Handler wires S3 event records to the extraction processor.
type Handler struct {
	proc         Processor
	blueprintARN string
	maxWait      time.Duration
	maxAttempts  int
	logger       *slog.Logger

	// sleep is replaced in tests to drive the retry backoff without waiting.
	sleep func(time.Duration)
}

// NewHandler creates a Handler. maxWait bounds each invocation's completion
// wait; zero picks the processor's default.
func NewHandler(proc Processor, blueprintARN string, maxWait time.Duration, logger *slog.Logger) (*Handler, error) {
	if proc == nil {
		return nil, errors.New("handler: processor must not be nil")
	}
	if strings.TrimSpace(blueprintARN) == "" {
		return nil, errors.New("handler: blueprint ARN must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		proc:         proc,
		blueprintARN: blueprintARN,
		maxWait:      maxWait,
		maxAttempts:  defaultMaxAttempts,
		logger:       logger,
		sleep:        time.Sleep,
	}, nil
}

// Handle processes one S3 event. Records outside the input/ namespace are
// skipped; per-record errors are reported in the body rather than failing
// the whole batch.
func (h *Handler) Handle(ctx context.Context, event events.S3Event) (Response, error) {
	var results []recordResult
	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			key = record.S3.Object.Key
		}
		if !strings.HasPrefix(key, inputPrefix) {
			continue
		}

		log := h.logger.With("bucket", bucket, "key", key)
		log.Info("processing document")

		outputPath := deriveOutputPath(key)
		inputURI := fmt.Sprintf("s3://%s/%s", bucket, key)
		outputURI := fmt.Sprintf("s3://%s/%sjob_metadata.json", bucket, outputPath)

		arn, status, err := h.processWithRetry(ctx, log, inputURI, outputURI)
		if err != nil {
			log.Error("processing failed", "err", err)
			results = append(results, recordResult{InputFile: key, Error: err.Error()})
			continue
		}
		results = append(results, recordResult{
			InputFile:     key,
			OutputPath:    outputPath,
			Status:        status.Status,
			InvocationARN: arn,
		})
	}

	body, err := json.Marshal(responseBody{ProcessedFiles: len(results), Results: results})
	if err != nil {
		return Response{}, fmt.Errorf("handler: marshal response: %w", err)
	}
	return Response{StatusCode: 200, Body: string(body)}, nil
}

// processWithRetry invokes the extraction with exponential backoff. The
// final attempt's error is returned as-is.
func (h *Handler) processWithRetry(ctx context.Context, log *slog.Logger, inputURI, outputURI string) (string, dataautomation.JobStatus, error) {
	for attempt := 0; ; attempt++ {
		arn, err := h.proc.ProcessDocument(ctx, inputURI, outputURI, h.blueprintARN)
		if err == nil {
			var status dataautomation.JobStatus
			status, err = h.proc.WaitForCompletion(ctx, arn, h.maxWait)
			if err == nil {
				return arn, status, nil
			}
		}
		if attempt >= h.maxAttempts-1 {
			return "", dataautomation.JobStatus{}, err
		}
		wait := time.Duration(1<<attempt) * time.Second
		log.Warn("attempt failed, retrying", "attempt", attempt+1, "wait", wait, "err", err)
		h.sleep(wait)
	}
}

// deriveOutputPath maps input/<ts>_<name>.<ext> to output/<ts>_<name>/,
// cutting the filename at its first dot.
func deriveOutputPath(key string) string {
	filename := key
	if i := strings.LastIndex(key, "/"); i >= 0 {
		filename = key[i+1:]
	}
	stem, _, _ := strings.Cut(filename, ".")
	return outputPrefix + stem + "/"
}
