package domain

import "time"

// Submission describes one document handed to the extraction pipeline.
// It is created at workflow start and never mutated afterwards.
type Submission struct {
	RunID        string
	SourcePath   string
	Stage        string
	ObjectKey    string
	OutputPrefix string
	SubmittedAt  time.Time
}

// Outcome is the terminal state of a submission's polling loop.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomeTimeout Outcome = "TIMEOUT"
)

// Preview holds a few fields lifted from a result artifact for display.
// A zero Preview means no preview could be extracted.
type Preview struct {
	FullName string
	Email    string
}

// Empty reports whether the preview carries nothing worth showing.
func (p Preview) Empty() bool {
	return p.FullName == "" && p.Email == ""
}

// Report is the outcome of one workflow run.
type Report struct {
	Submission Submission
	Outcome    Outcome
	// ResultPath is the local path of the downloaded artifact, set only on success.
	ResultPath string
	Preview    Preview
	// Detail carries the first error-marker log line on failure.
	Detail  string
	Elapsed time.Duration
}
