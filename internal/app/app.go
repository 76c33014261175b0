package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zombor/receipt-processor/internal/config"
	"github.com/zombor/receipt-processor/internal/notify"
	"github.com/zombor/receipt-processor/internal/receipt"
	"github.com/zombor/receipt-processor/internal/scanning"
)

// App holds the collaborators built from a Config
type App struct {
	Service *receipt.Service
	DB      receipt.DB
	Scanner scanning.Scanner
	Storage receipt.Storage
	Metrics *receipt.Metrics
}

// Open builds every collaborator the config selects. reg may be nil to
// skip metrics.
func Open(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	var (
		awsCfg aws.Config
		err    error
	)
	if cfg.NeedsAWS() {
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
	}

	a := &App{}

	slog.Info("Initializing storage...", "type", cfg.Storage)
	a.Storage, err = openStorage(cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	slog.Info("Initializing database...", "type", cfg.Store)
	a.DB, err = openDB(cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	a.Scanner, err = openScanner(ctx, cfg, awsCfg, a.Storage)
	if err != nil {
		a.DB.Close()
		return nil, err
	}

	notifier := openNotifier(cfg, awsCfg)

	a.Service = receipt.NewService(a.DB, a.Scanner, a.Storage, notifier, receipt.Addressing{
		From: cfg.SenderEmail,
		To:   cfg.Recipients(),
	})
	if reg != nil {
		a.Metrics = receipt.NewMetrics(reg)
		a.Service.WithMetrics(a.Metrics)
	}
	return a, nil
}

// Close releases the scanner and database
func (a *App) Close() error {
	return errors.Join(a.Scanner.Close(), a.DB.Close())
}

func openStorage(cfg *config.Config, awsCfg aws.Config) (receipt.Storage, error) {
	switch cfg.Storage {
	case "local":
		storage, err := receipt.NewLocalStorage(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("initializing storage: %w", err)
		}
		return storage, nil
	case "s3":
		return receipt.NewS3StorageFromConfig(awsCfg), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

func openDB(cfg *config.Config, awsCfg aws.Config) (receipt.DB, error) {
	var (
		db  receipt.DB
		err error
	)
	switch cfg.Store {
	case "bolt":
		db, err = receipt.NewBoltDB(cfg.DBPath)
	case "sqlite":
		db, err = receipt.NewSQLiteDB(cfg.DBPath)
	case "dynamodb":
		db, err = receipt.NewDynamoDBFromConfig(awsCfg, cfg.DynamoDBTable)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	return db, nil
}

func openScanner(ctx context.Context, cfg *config.Config, awsCfg aws.Config, storage receipt.Storage) (scanning.Scanner, error) {
	switch cfg.Scanner {
	case "textract":
		slog.Info("Initializing Textract scanner...")
		return scanning.NewTextractFromConfig(awsCfg), nil
	case "gemini", "ollama":
		if storage == nil {
			return nil, fmt.Errorf("scanner %s reads documents from storage; --storage none is not supported", cfg.Scanner)
		}
	default:
		return nil, fmt.Errorf("unknown scanner %q", cfg.Scanner)
	}

	if cfg.Scanner == "gemini" {
		slog.Info("Initializing Gemini scanner...", "model", cfg.GeminiModel)
		scanner, err := scanning.NewGemini(ctx, cfg.GeminiKey, cfg.GeminiModel, storage)
		if err != nil {
			return nil, fmt.Errorf("initializing gemini: %w", err)
		}
		return scanner, nil
	}

	slog.Info("Initializing Ollama scanner...", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
	scanner, err := scanning.NewOllama(cfg.OllamaURL, cfg.OllamaModel, storage)
	if err != nil {
		return nil, fmt.Errorf("initializing ollama: %w", err)
	}
	return scanner, nil
}

func openNotifier(cfg *config.Config, awsCfg aws.Config) notify.Notifier {
	switch cfg.Notifier {
	case "ses":
		return notify.NewSESFromConfig(awsCfg)
	case "smtp":
		return notify.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	case "log":
		return notify.Log{}
	default:
		return nil
	}
}
