// Package menu is the interactive operator surface: six choices mapping to
// stage-specific runs of the same workflow, blueprint promotion, and exit.
// Success and failure are reported as human-readable banners only; there is
// no machine-readable exit contract beyond returning to the menu.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/windson/bda-usecases/internal/domain"
	"github.com/windson/bda-usecases/internal/promote"
)

// Stage labels shown next to each run.
const (
	StageDevelopment = "development"
	StageProduction  = "production"
	StageLive        = "live"
)

// Runner executes one submission-and-collection run.
type Runner interface {
	Run(ctx context.Context, sourcePath, stage string) (domain.Report, error)
}

// Promoter promotes the blueprint and reports its current stage.
type Promoter interface {
	Promote(ctx context.Context) (promote.Result, error)
	Stage(ctx context.Context) (string, error)
}

var (
	heading = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	failure = color.New(color.FgRed, color.Bold)
	warning = color.New(color.FgYellow)
)

// Menu drives the operator loop over the given reader/writer pair.
type Menu struct {
	in       *bufio.Reader
	out      io.Writer
	runner   Runner
	promoter Promoter
}

// New creates a Menu.
func New(in io.Reader, out io.Writer, runner Runner, promoter Promoter) (*Menu, error) {
	if in == nil || out == nil {
		return nil, errors.New("menu: in and out must not be nil")
	}
	if runner == nil {
		return nil, errors.New("menu: runner must not be nil")
	}
	if promoter == nil {
		return nil, errors.New("menu: promoter must not be nil")
	}
	return &Menu{in: bufio.NewReader(in), out: out, runner: runner, promoter: promoter}, nil
}

// Loop shows the menu until the operator exits or input ends.
func (m *Menu) Loop(ctx context.Context) error {
	for {
		m.show()
		choice, err := m.readLine("Select an option: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch choice {
		case "1":
			m.runStage(ctx, StageDevelopment, false)
		case "2":
			m.runPromote(ctx)
		case "3":
			m.runStage(ctx, StageProduction, true)
		case "4":
			m.runStage(ctx, StageLive, false)
		case "5":
			m.runComposite(ctx)
		case "6":
			fmt.Fprintln(m.out, "Bye.")
			return nil
		default:
			warning.Fprintf(m.out, "Unknown option %q\n", choice)
		}
	}
}

func (m *Menu) show() {
	heading.Fprintln(m.out, "\n=== Document extraction operations ===")
	fmt.Fprintln(m.out, " 1) Run development-stage extraction")
	fmt.Fprintln(m.out, " 2) Promote blueprint to LIVE")
	fmt.Fprintln(m.out, " 3) Run production-stage extraction (checks blueprint stage)")
	fmt.Fprintln(m.out, " 4) Run live-stage extraction")
	fmt.Fprintln(m.out, " 5) Run all three stages sequentially")
	fmt.Fprintln(m.out, " 6) Exit")
}

// runStage asks for a file and runs one stage. With gated set, the
// blueprint's stage is checked first; a non-LIVE blueprint is a warning the
// operator can override, not a hard error.
func (m *Menu) runStage(ctx context.Context, stage string, gated bool) {
	if gated && !m.confirmStageGate(ctx) {
		return
	}
	path, err := m.readLine("Document path: ")
	if err != nil {
		failure.Fprintf(m.out, "read input: %v\n", err)
		return
	}
	m.runOne(ctx, path, stage)
}

func (m *Menu) confirmStageGate(ctx context.Context) bool {
	stage, err := m.promoter.Stage(ctx)
	if err != nil {
		failure.Fprintf(m.out, "Could not check blueprint stage: %v\n", err)
		return false
	}
	if stage == domain.StageLive {
		return true
	}
	warning.Fprintf(m.out, "Blueprint stage is %s, not LIVE. Production runs normally need a LIVE blueprint.\n", stage)
	answer, err := m.readLine("Continue anyway? [y/N]: ")
	if err != nil {
		return false
	}
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}

func (m *Menu) runOne(ctx context.Context, path, stage string) bool {
	fmt.Fprintf(m.out, "Submitting %s (%s stage)...\n", path, stage)
	report, err := m.runner.Run(ctx, path, stage)

	switch report.Outcome {
	case domain.OutcomeSuccess:
		success.Fprintf(m.out, "SUCCESS: result saved to %s (took %s)\n", report.ResultPath, report.Elapsed.Round(time.Second))
		if !report.Preview.Empty() {
			fmt.Fprintf(m.out, "  extracted: %s <%s>\n", report.Preview.FullName, report.Preview.Email)
		}
		if err != nil {
			// Artifact appeared but local collection had trouble.
			warning.Fprintf(m.out, "  note: %v\n", err)
		}
		return err == nil
	case domain.OutcomeFailure:
		failure.Fprintf(m.out, "FAILED: error marker in handler logs\n")
		if report.Detail != "" {
			fmt.Fprintf(m.out, "  %s\n", strings.TrimSpace(report.Detail))
		}
	case domain.OutcomeTimeout:
		failure.Fprintf(m.out, "TIMEOUT: no result or error within the budget\n")
	default:
		failure.Fprintf(m.out, "ABORTED: %v\n", err)
	}
	return false
}

func (m *Menu) runPromote(ctx context.Context) {
	res, err := m.promoter.Promote(ctx)
	if err != nil {
		failure.Fprintf(m.out, "Promotion failed: %v\n", err)
		return
	}
	if res.AlreadyLive {
		success.Fprintln(m.out, "Blueprint is already in LIVE stage")
	} else {
		success.Fprintf(m.out, "Blueprint promoted from %s to LIVE\n", res.FromStage)
	}
	fmt.Fprintln(m.out, "Project will automatically use the LIVE blueprint")
}

// runComposite runs the three stages back to back against one document,
// stopping at the first run that does not succeed.
func (m *Menu) runComposite(ctx context.Context) {
	path, err := m.readLine("Document path: ")
	if err != nil {
		failure.Fprintf(m.out, "read input: %v\n", err)
		return
	}
	for _, stage := range []string{StageDevelopment, StageProduction, StageLive} {
		if !m.runOne(ctx, path, stage) {
			warning.Fprintf(m.out, "Stopping composite run after %s stage\n", stage)
			return
		}
	}
	success.Fprintln(m.out, "All three stages completed")
}

func (m *Menu) readLine(prompt string) (string, error) {
	fmt.Fprint(m.out, prompt)
	line, err := m.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
