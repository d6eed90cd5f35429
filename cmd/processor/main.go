package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomation"
	"github.com/aws/aws-sdk-go-v2/service/bedrockdataautomationruntime"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/windson/bda-usecases/handler"
	"github.com/windson/bda-usecases/internal/integrations/dataautomation"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	blueprintARN := mustEnv("BLUEPRINT_ARN")
	maxWait := envDuration("PROCESSING_MAX_WAIT", 5*time.Minute)

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	bda, err := dataautomation.New(
		bedrockdataautomation.NewFromConfig(cfg),
		bedrockdataautomationruntime.NewFromConfig(cfg),
		sts.NewFromConfig(cfg),
		cfg.Region,
	)
	if err != nil {
		slog.Error("failed to create data automation client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(bda, blueprintARN, maxWait, slog.Default())
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
