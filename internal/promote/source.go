package promote

import (
	"context"
	"errors"
	"fmt"
)

// FallbackSource tries a primary ARN source and falls back to a secondary
// one when the primary fails, keeping promotion usable for operator roles
// without CloudFormation read access.
type FallbackSource struct {
	primary  ARNSource
	fallback ARNSource
}

// NewFallbackSource creates a FallbackSource. fallback may be nil.
func NewFallbackSource(primary, fallback ARNSource) (*FallbackSource, error) {
	if primary == nil {
		return nil, errors.New("promote: primary arn source must not be nil")
	}
	return &FallbackSource{primary: primary, fallback: fallback}, nil
}

// ExtractionARNs resolves the ARNs from the primary source, then the
// fallback. Both errors are reported when both fail.
func (s *FallbackSource) ExtractionARNs(ctx context.Context) (string, string, error) {
	blueprintARN, projectARN, err := s.primary.ExtractionARNs(ctx)
	if err == nil {
		return blueprintARN, projectARN, nil
	}
	if s.fallback == nil {
		return "", "", err
	}
	blueprintARN, projectARN, ferr := s.fallback.ExtractionARNs(ctx)
	if ferr != nil {
		return "", "", fmt.Errorf("promote: primary source: %v; fallback: %w", err, ferr)
	}
	return blueprintARN, projectARN, nil
}
