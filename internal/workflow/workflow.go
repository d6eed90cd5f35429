package workflow

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/windson/bda-usecases/internal/domain"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBudget       = 5 * time.Minute
	defaultLookBack     = 30 * time.Second
	defaultResultsDir   = "results"

	keyTimeFormat = "20060102-150405"
)

// ObjectStore is the content-store capability the workflow needs: one write
// under input/, reads under output/.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, key string) error
	FindResult(ctx context.Context, prefix string) (string, error)
	Download(ctx context.Context, key, localPath string) error
}

// ErrorScanner reports error-marker log lines emitted in [since, until).
// Queries must be idempotent; the loop calls them once per tick.
type ErrorScanner interface {
	ScanErrors(ctx context.Context, since, until time.Time) ([]string, error)
}

// TailHandle is a running log tail. Stop must be idempotent.
type TailHandle interface {
	Stop()
}

// Tailer starts a human-readable log tail from the given time. The tail is
// display-only and never influences the workflow outcome.
type Tailer interface {
	Tail(ctx context.Context, from time.Time) (TailHandle, error)
}

// Clock abstracts time so the polling loop is testable without waiting.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Options tune a Service. Zero values fall back to the stock five-minute
// budget with a five-second interval.
type Options struct {
	PollInterval time.Duration
	Budget       time.Duration
	LookBack     time.Duration
	ResultsDir   string
	// Tailer is optional; when nil no console tail is started.
	Tailer Tailer
	// Preview extracts display fields from a downloaded artifact. It must
	// swallow its own failures and return a zero Preview instead.
	Preview func(path string) domain.Preview
	Logger  *slog.Logger
	Clock   Clock
}

// Service runs the submission-and-collection workflow: upload one document,
// then race the error scanner, the result locator, and the deadline. Each
// run is independent; the Service holds no cross-run state.
type Service struct {
	store   ObjectStore
	scanner ErrorScanner

	pollInterval time.Duration
	budget       time.Duration
	lookBack     time.Duration
	resultsDir   string
	tailer       Tailer
	preview      func(path string) domain.Preview
	logger       *slog.Logger
	clock        Clock
}

// RunInput names the document and the stage label for one run. The stage is
// used for display and logging only.
type RunInput struct {
	SourcePath string
	Stage      string
}

// New creates a workflow Service.
func New(store ObjectStore, scanner ErrorScanner, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("workflow: object store must not be nil")
	}
	if scanner == nil {
		return nil, errors.New("workflow: error scanner must not be nil")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Budget <= 0 {
		opts.Budget = defaultBudget
	}
	if opts.LookBack <= 0 {
		opts.LookBack = defaultLookBack
	}
	if opts.ResultsDir == "" {
		opts.ResultsDir = defaultResultsDir
	}
	if opts.Preview == nil {
		opts.Preview = func(string) domain.Preview { return domain.Preview{} }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	return &Service{
		store:        store,
		scanner:      scanner,
		pollInterval: opts.PollInterval,
		budget:       opts.Budget,
		lookBack:     opts.LookBack,
		resultsDir:   opts.ResultsDir,
		tailer:       opts.Tailer,
		preview:      opts.Preview,
		logger:       opts.Logger,
		clock:        opts.Clock,
	}, nil
}

// Run submits one document and blocks until a terminal condition: Success
// when the result artifact appears, Failure when an error marker shows up in
// the logs first, Timeout when the budget elapses. Failure and Timeout are
// also returned as a typed *Error; the caller decides whether to retry.
func (s *Service) Run(ctx context.Context, in RunInput) (domain.Report, error) {
	if _, err := os.Stat(in.SourcePath); err != nil {
		return domain.Report{}, newError(ErrorNotFound, "input_file_missing", err)
	}

	start := s.clock.Now()
	filename := filepath.Base(in.SourcePath)
	sub := domain.Submission{
		RunID:        newRunID(),
		SourcePath:   in.SourcePath,
		Stage:        in.Stage,
		ObjectKey:    DeriveObjectKey(start, filename),
		OutputPrefix: DeriveOutputPrefix(start, filename),
		SubmittedAt:  start,
	}
	log := s.logger.With("run_id", sub.RunID, "stage", sub.Stage, "key", sub.ObjectKey)

	log.Info("uploading document")
	if err := s.store.Upload(ctx, sub.SourcePath, sub.ObjectKey); err != nil {
		return domain.Report{Submission: sub}, newError(ErrorTransfer, "upload_failed", err)
	}

	if s.tailer != nil {
		h, err := s.tailer.Tail(ctx, start.Add(-s.lookBack))
		if err != nil {
			log.Warn("log tail unavailable", "err", err)
		} else {
			defer h.Stop()
		}
	}

	report, err := s.poll(ctx, log, sub)
	report.Elapsed = s.clock.Now().Sub(start)
	return report, err
}

// poll is the fixed-budget, fixed-interval race between Failure, Success and
// Timeout. Error markers are checked before results each tick, so Failure
// preempts both.
func (s *Service) poll(ctx context.Context, log *slog.Logger, sub domain.Submission) (domain.Report, error) {
	report := domain.Report{Submission: sub}
	deadline := sub.SubmittedAt.Add(s.budget)
	scanFrom := sub.SubmittedAt.Add(-s.lookBack)

	for {
		if err := ctx.Err(); err != nil {
			return report, newError(ErrorInternal, "run_cancelled", err)
		}
		now := s.clock.Now()

		lines, err := s.scanner.ScanErrors(ctx, scanFrom, now)
		if err != nil {
			// Transient query problems don't flip the outcome; the deadline
			// still bounds the run.
			log.Warn("error scan failed", "err", err)
		} else {
			scanFrom = now
			if len(lines) > 0 {
				report.Outcome = domain.OutcomeFailure
				report.Detail = lines[0]
				log.Error("error marker observed in logs", "line", lines[0])
				return report, newError(ErrorFailure, "error_marker_in_logs", nil)
			}
		}

		key, err := s.store.FindResult(ctx, sub.OutputPrefix)
		if err != nil {
			log.Warn("result lookup failed", "err", err)
		} else if key != "" {
			return s.collect(ctx, log, report, key)
		}

		if !now.Before(deadline) {
			report.Outcome = domain.OutcomeTimeout
			log.Error("no terminal signal before deadline", "budget", s.budget)
			return report, newError(ErrorTimeout, "deadline_exceeded", nil)
		}
		s.clock.Sleep(ctx, s.pollInterval)
	}
}

// collect downloads the single matching artifact and extracts the preview.
// Preview failures are swallowed; a local download failure is reported as an
// internal error but the terminal condition stays Success.
func (s *Service) collect(ctx context.Context, log *slog.Logger, report domain.Report, key string) (domain.Report, error) {
	report.Outcome = domain.OutcomeSuccess

	if err := os.MkdirAll(s.resultsDir, 0o755); err != nil {
		return report, newError(ErrorInternal, "results_dir_unavailable", err)
	}
	localPath := filepath.Join(s.resultsDir, resultName(report.Submission.OutputPrefix))
	if err := s.store.Download(ctx, key, localPath); err != nil {
		return report, newError(ErrorInternal, "result_download_failed", err)
	}
	report.ResultPath = localPath
	report.Preview = s.preview(localPath)

	log.Info("result artifact collected", "path", localPath)
	return report, nil
}

// DeriveObjectKey builds the unique input key for a submission. The second
// granularity timestamp keeps concurrent runs of distinct files or any runs
// a second apart from colliding.
func DeriveObjectKey(t time.Time, filename string) string {
	return "input/" + t.UTC().Format(keyTimeFormat) + "_" + filename
}

// DeriveOutputPrefix builds the output prefix the external handler writes
// under for the same submission. The stem cuts at the first dot, matching
// the handler's derivation.
func DeriveOutputPrefix(t time.Time, filename string) string {
	stem, _, _ := strings.Cut(filename, ".")
	return "output/" + t.UTC().Format(keyTimeFormat) + "_" + stem + "/"
}

// resultName turns "output/<ts>_<stem>/" into "<ts>_<stem>.json".
func resultName(outputPrefix string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(outputPrefix, "output/"), "/")
	return name + ".json"
}

var newRunID = func() string {
	return uuid.NewString()
}
