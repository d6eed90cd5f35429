// bdactl is the operator CLI for the document-extraction pipeline: it
// submits documents through the submission-and-collection workflow, promotes
// the extraction blueprint, and offers the interactive menu.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/windson/bda-usecases/internal/config"
	"github.com/windson/bda-usecases/internal/domain"
	"github.com/windson/bda-usecases/internal/integrations/dataautomation"
	"github.com/windson/bda-usecases/internal/integrations/logstream"
	"github.com/windson/bda-usecases/internal/integrations/objectstore"
	"github.com/windson/bda-usecases/internal/integrations/paramstore"
	"github.com/windson/bda-usecases/internal/integrations/stackoutputs"
	"github.com/windson/bda-usecases/internal/menu"
	"github.com/windson/bda-usecases/internal/preview"
	"github.com/windson/bda-usecases/internal/promote"
	"github.com/windson/bda-usecases/internal/workflow"
)

const tailInterval = 2 * time.Second

type cli struct {
	Config string `short:"c" type:"path" help:"Path to a YAML config file."`

	Run     runCmd     `cmd:"" help:"Submit one document through a stage and wait for the result."`
	Promote promoteCmd `cmd:"" help:"Promote the extraction blueprint to LIVE."`
	Menu    menuCmd    `cmd:"" default:"withargs" help:"Interactive operator menu."`
}

type runCmd struct {
	File  string `arg:"" type:"path" help:"Document to submit."`
	Stage string `default:"development" enum:"development,production,live" help:"Stage label for the run."`
}

type promoteCmd struct{}

type menuCmd struct{}

// app holds the wired services shared by all commands.
type app struct {
	cfg      config.Config
	workflow *workflow.Service
	promoter *promote.Service
	logger   *slog.Logger
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("bdactl"),
		kong.Description("Operations CLI for the document-extraction pipeline."),
		kong.UsageOnError(),
	)

	ctx := context.Background()
	a, err := newApp(ctx, c.Config)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.FatalIfErrorf(kctx.Run(a))
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	awscfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	store, err := objectstore.NewFromClient(s3.NewFromConfig(awscfg), cfg.Bucket)
	if err != nil {
		return nil, err
	}
	logs, err := logstream.New(cloudwatchlogs.NewFromConfig(awscfg), cfg.LogGroup, cfg.ErrorPattern)
	if err != nil {
		return nil, err
	}
	bda, err := dataautomation.New(
		bedrockdataautomation.NewFromConfig(awscfg),
		bedrockdataautomationruntime.NewFromConfig(awscfg),
		sts.NewFromConfig(awscfg),
		cfg.Region,
	)
	if err != nil {
		return nil, err
	}

	wf, err := workflow.New(store, logs, workflow.Options{
		PollInterval: cfg.PollInterval,
		Budget:       cfg.Timeout,
		LookBack:     cfg.LookBack,
		ResultsDir:   cfg.ResultsDir,
		Tailer:       &consoleTailer{logs: logs, out: os.Stdout},
		Preview:      preview.FromFile,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	stacks, err := stackoutputs.New(cloudformation.NewFromConfig(awscfg), cfg.StackName)
	if err != nil {
		return nil, err
	}
	params, err := paramstore.New(ssm.NewFromConfig(awscfg), cfg.ParamPrefix)
	if err != nil {
		return nil, err
	}
	arns, err := promote.NewFallbackSource(stacks, params)
	if err != nil {
		return nil, err
	}
	promoter, err := promote.New(arns, bda, logger)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, workflow: wf, promoter: promoter, logger: logger}, nil
}

// consoleTailer adapts the log stream client to the workflow's Tailer,
// fixing the output writer and poll interval.
type consoleTailer struct {
	logs *logstream.Client
	out  io.Writer
}

func (t *consoleTailer) Tail(ctx context.Context, from time.Time) (workflow.TailHandle, error) {
	return t.logs.Tail(ctx, from, t.out, tailInterval)
}

// runnerAdapter exposes the workflow Service under the menu's Runner shape.
type runnerAdapter struct {
	wf *workflow.Service
}

func (r runnerAdapter) Run(ctx context.Context, sourcePath, stage string) (domain.Report, error) {
	return r.wf.Run(ctx, workflow.RunInput{SourcePath: sourcePath, Stage: stage})
}

func (c *runCmd) Run(ctx context.Context, a *app) error {
	// Non-interactive production runs enforce the stage gate; only the menu
	// offers the confirm-and-continue path.
	if c.Stage == menu.StageProduction {
		stage, err := a.promoter.Stage(ctx)
		if err != nil {
			return err
		}
		if stage != domain.StageLive {
			return fmt.Errorf("blueprint stage is %s, not LIVE; promote it first or use the interactive menu", stage)
		}
	}

	report, err := a.workflow.Run(ctx, workflow.RunInput{SourcePath: c.File, Stage: c.Stage})
	if err != nil {
		return err
	}
	fmt.Printf("SUCCESS: result saved to %s\n", report.ResultPath)
	if !report.Preview.Empty() {
		fmt.Printf("extracted: %s <%s>\n", report.Preview.FullName, report.Preview.Email)
	}
	return nil
}

func (p *promoteCmd) Run(ctx context.Context, a *app) error {
	res, err := a.promoter.Promote(ctx)
	if err != nil {
		return err
	}
	if res.AlreadyLive {
		fmt.Println("Blueprint is already in LIVE stage")
	} else {
		fmt.Printf("Blueprint promoted from %s to LIVE\n", res.FromStage)
	}
	return nil
}

func (m *menuCmd) Run(ctx context.Context, a *app) error {
	ui, err := menu.New(os.Stdin, os.Stdout, runnerAdapter{wf: a.workflow}, a.promoter)
	if err != nil {
		return err
	}
	if err := ui.Loop(ctx); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
