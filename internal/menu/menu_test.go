package menu

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/windson/bda-usecases/internal/domain"
	"github.com/windson/bda-usecases/internal/promote"
)

type runCall struct {
	path  string
	stage string
}

type fakeRunner struct {
	reports map[string]domain.Report
	errs    map[string]error
	calls   []runCall
}

func (f *fakeRunner) Run(_ context.Context, sourcePath, stage string) (domain.Report, error) {
	f.calls = append(f.calls, runCall{path: sourcePath, stage: stage})
	return f.reports[stage], f.errs[stage]
}

type fakePromoter struct {
	result       promote.Result
	promoteErr   error
	stage        string
	stageErr     error
	promoteCalls int
}

func (f *fakePromoter) Promote(_ context.Context) (promote.Result, error) {
	f.promoteCalls++
	return f.result, f.promoteErr
}

func (f *fakePromoter) Stage(_ context.Context) (string, error) {
	return f.stage, f.stageErr
}

func successReport(stage string) domain.Report {
	return domain.Report{
		Outcome:    domain.OutcomeSuccess,
		ResultPath: "results/20260301-100000_resume.json",
		Preview:    domain.Preview{FullName: "Ada Lovelace", Email: "ada@example.com"},
	}
}

func runMenu(t *testing.T, input string, runner Runner, promoter Promoter) string {
	t.Helper()
	var out bytes.Buffer
	m, err := New(strings.NewReader(input), &out, runner, promoter)
	require.NoError(t, err)
	require.NoError(t, m.Loop(context.Background()))
	return out.String()
}

func TestLoop_ExitImmediately(t *testing.T) {
	out := runMenu(t, "6\n", &fakeRunner{}, &fakePromoter{})
	require.Contains(t, out, "Bye.")
}

func TestLoop_EndOfInputExitsCleanly(t *testing.T) {
	runMenu(t, "", &fakeRunner{}, &fakePromoter{})
}

func TestLoop_UnknownOption(t *testing.T) {
	out := runMenu(t, "9\n6\n", &fakeRunner{}, &fakePromoter{})
	require.Contains(t, out, `Unknown option "9"`)
}

func TestLoop_DevelopmentRun(t *testing.T) {
	runner := &fakeRunner{reports: map[string]domain.Report{
		StageDevelopment: successReport(StageDevelopment),
	}}
	out := runMenu(t, "1\nresume.pdf\n6\n", runner, &fakePromoter{})

	require.Equal(t, []runCall{{path: "resume.pdf", stage: StageDevelopment}}, runner.calls)
	require.Contains(t, out, "SUCCESS")
	require.Contains(t, out, "Ada Lovelace <ada@example.com>")
}

func TestLoop_FailureBanner(t *testing.T) {
	runner := &fakeRunner{
		reports: map[string]domain.Report{
			StageLive: {Outcome: domain.OutcomeFailure, Detail: "ERROR schema mismatch"},
		},
		errs: map[string]error{StageLive: errors.New("workflow: FAILURE")},
	}
	out := runMenu(t, "4\nresume.pdf\n6\n", runner, &fakePromoter{})
	require.Contains(t, out, "FAILED")
	require.Contains(t, out, "ERROR schema mismatch")
}

func TestLoop_ProductionGateDeclined(t *testing.T) {
	runner := &fakeRunner{}
	promoter := &fakePromoter{stage: domain.StageDevelopment}
	out := runMenu(t, "3\nn\n6\n", runner, promoter)

	require.Empty(t, runner.calls)
	require.Contains(t, out, "not LIVE")
}

func TestLoop_ProductionGateOverridden(t *testing.T) {
	runner := &fakeRunner{reports: map[string]domain.Report{
		StageProduction: successReport(StageProduction),
	}}
	promoter := &fakePromoter{stage: domain.StageDevelopment}
	out := runMenu(t, "3\ny\nresume.pdf\n6\n", runner, promoter)

	require.Equal(t, []runCall{{path: "resume.pdf", stage: StageProduction}}, runner.calls)
	require.Contains(t, out, "SUCCESS")
}

func TestLoop_ProductionGatePassesWhenLive(t *testing.T) {
	runner := &fakeRunner{reports: map[string]domain.Report{
		StageProduction: successReport(StageProduction),
	}}
	promoter := &fakePromoter{stage: domain.StageLive}
	runMenu(t, "3\nresume.pdf\n6\n", runner, promoter)

	require.Len(t, runner.calls, 1)
}

func TestLoop_Promote(t *testing.T) {
	promoter := &fakePromoter{result: promote.Result{FromStage: domain.StageDevelopment}}
	out := runMenu(t, "2\n6\n", &fakeRunner{}, promoter)

	require.Equal(t, 1, promoter.promoteCalls)
	require.Contains(t, out, "promoted from DEVELOPMENT to LIVE")
}

func TestLoop_PromoteAlreadyLive(t *testing.T) {
	promoter := &fakePromoter{result: promote.Result{AlreadyLive: true}}
	out := runMenu(t, "2\n6\n", &fakeRunner{}, promoter)
	require.Contains(t, out, "already in LIVE stage")
}

func TestLoop_CompositeStopsOnFailure(t *testing.T) {
	runner := &fakeRunner{
		reports: map[string]domain.Report{
			StageDevelopment: successReport(StageDevelopment),
			StageProduction:  {Outcome: domain.OutcomeTimeout},
		},
		errs: map[string]error{StageProduction: errors.New("workflow: TIMEOUT")},
	}
	out := runMenu(t, "5\nresume.pdf\n6\n", runner, &fakePromoter{})

	require.Equal(t, []runCall{
		{path: "resume.pdf", stage: StageDevelopment},
		{path: "resume.pdf", stage: StageProduction},
	}, runner.calls)
	require.Contains(t, out, "TIMEOUT")
	require.Contains(t, out, "Stopping composite run after production stage")
}

func TestLoop_CompositeAllStages(t *testing.T) {
	runner := &fakeRunner{reports: map[string]domain.Report{
		StageDevelopment: successReport(StageDevelopment),
		StageProduction:  successReport(StageProduction),
		StageLive:        successReport(StageLive),
	}}
	out := runMenu(t, "5\nresume.pdf\n6\n", runner, &fakePromoter{})

	require.Len(t, runner.calls, 3)
	require.Contains(t, out, "All three stages completed")
}
