package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/receipt-processor/internal/app"
	"github.com/zombor/receipt-processor/internal/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	fs := ff.NewFlagSet("receipt-lambda")
	cfg := config.Register(fs)
	cfg.Scanner = "textract"
	cfg.Store = "dynamodb"
	cfg.Storage = "s3"
	cfg.Notifier = "ses"

	if err := ff.Parse(fs, nil, ff.WithEnvVars()); err != nil {
		slog.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, nil)
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	lambda.Start(newHandler(a.Service).Handle)
}
