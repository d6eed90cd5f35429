// Package promote moves the extraction blueprint from the DEVELOPMENT stage
// to LIVE. The blueprint schema is externally owned; promotion carries it
// through unchanged.
package promote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/windson/bda-usecases/internal/domain"
)

// ARNSource resolves the blueprint and project ARNs of the deployment.
// CloudFormation stack outputs are the primary source, the parameter store
// the fallback.
type ARNSource interface {
	ExtractionARNs(ctx context.Context) (blueprintARN, projectARN string, err error)
}

// BlueprintClient is the control-plane capability promotion needs.
type BlueprintClient interface {
	GetBlueprint(ctx context.Context, arn string) (domain.BlueprintInfo, error)
	PromoteToLive(ctx context.Context, arn, schema string) error
}

// Result reports what one promotion attempt did.
type Result struct {
	BlueprintARN string
	ProjectARN   string
	// AlreadyLive is set when the blueprint needed no change.
	AlreadyLive bool
	FromStage   string
}

// Service performs blueprint promotion.
type Service struct {
	arns   ARNSource
	client BlueprintClient
	logger *slog.Logger
}

// New creates a promotion Service.
func New(arns ARNSource, client BlueprintClient, logger *slog.Logger) (*Service, error) {
	if arns == nil {
		return nil, errors.New("promote: arn source must not be nil")
	}
	if client == nil {
		return nil, errors.New("promote: blueprint client must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{arns: arns, client: client, logger: logger}, nil
}

// Promote resolves the deployment's blueprint and moves it to LIVE. A
// blueprint already in LIVE is a no-op; projects pick up the LIVE blueprint
// automatically, so nothing else needs touching.
func (s *Service) Promote(ctx context.Context) (Result, error) {
	blueprintARN, projectARN, err := s.arns.ExtractionARNs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("promote: resolve ARNs: %w", err)
	}
	res := Result{BlueprintARN: blueprintARN, ProjectARN: projectARN}

	bp, err := s.client.GetBlueprint(ctx, blueprintARN)
	if err != nil {
		return Result{}, fmt.Errorf("promote: %w", err)
	}
	res.FromStage = bp.Stage

	if bp.Live() {
		s.logger.Info("blueprint already live", "arn", blueprintARN)
		res.AlreadyLive = true
		return res, nil
	}

	s.logger.Info("promoting blueprint", "arn", blueprintARN, "from", bp.Stage)
	if err := s.client.PromoteToLive(ctx, blueprintARN, bp.Schema); err != nil {
		return Result{}, fmt.Errorf("promote: %w", err)
	}
	return res, nil
}

// Stage returns the current stage of the deployment's blueprint. The
// production run uses it as a precondition check.
func (s *Service) Stage(ctx context.Context) (string, error) {
	blueprintARN, _, err := s.arns.ExtractionARNs(ctx)
	if err != nil {
		return "", fmt.Errorf("promote: resolve ARNs: %w", err)
	}
	bp, err := s.client.GetBlueprint(ctx, blueprintARN)
	if err != nil {
		return "", fmt.Errorf("promote: %w", err)
	}
	return bp.Stage, nil
}
