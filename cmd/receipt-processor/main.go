package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombor/receipt-processor/internal/app"
	"github.com/zombor/receipt-processor/internal/config"
	"github.com/zombor/receipt-processor/internal/receipt"
	"github.com/zombor/receipt-processor/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	config.LoadDotEnv()

	rootFlags := ff.NewFlagSet("receipt-processor")
	cfg := config.Register(rootFlags)

	serveFlags := ff.NewFlagSet("serve").SetParent(rootFlags)
	serveCmd := &ff.Command{
		Name:      "serve",
		Usage:     "receipt-processor serve [FLAGS]",
		ShortHelp: "run the HTTP API",
		Flags:     serveFlags,
		Exec: func(ctx context.Context, args []string) error {
			return serve(ctx, cfg)
		},
	}

	processFlags := ff.NewFlagSet("process").SetParent(rootFlags)
	bucket := processFlags.StringLong("bucket", "", "Bucket holding the document")
	key := processFlags.StringLong("key", "", "Object key of the document")
	processCmd := &ff.Command{
		Name:      "process",
		Usage:     "receipt-processor process --bucket BUCKET --key KEY [FLAGS]",
		ShortHelp: "process one document and exit",
		Flags:     processFlags,
		Exec: func(ctx context.Context, args []string) error {
			return process(ctx, cfg, scanning.DocumentRef{Bucket: *bucket, Key: *key})
		},
	}

	root := &ff.Command{
		Name:        "receipt-processor",
		Usage:       "receipt-processor <SUBCOMMAND> [FLAGS]",
		ShortHelp:   "extract receipts from scanned documents",
		Flags:       rootFlags,
		Subcommands: []*ff.Command{serveCmd, processCmd},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Parse(os.Args[1:], ff.WithEnvVars()); err != nil {
		selected := root.GetSelected()
		if selected == nil {
			selected = root
		}
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(selected))
		if errors.Is(err, ff.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := root.Run(ctx); err != nil {
		if errors.Is(err, ff.ErrNoExec) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root))
			os.Exit(1)
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := app.Open(ctx, cfg, registry)
	if err != nil {
		return err
	}
	defer a.Close()

	server := receipt.NewServer(a.Service, receipt.ServerConfig{
		BasicAuth: receipt.BasicAuth{
			Username: cfg.AuthUser,
			Password: cfg.AuthPass,
		},
		UploadBucket: cfg.UploadBucket,
		Metrics:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	if cfg.AuthUser != "" || cfg.AuthPass != "" {
		slog.Info("Basic auth enabled", "user", cfg.AuthUser)
	}

	err = server.Run(ctx, fmt.Sprintf(":%d", cfg.Port))
	slog.Info("Shutting down...")
	return err
}

func process(ctx context.Context, cfg *config.Config, ref scanning.DocumentRef) error {
	if ref.Bucket == "" || ref.Key == "" {
		return fmt.Errorf("--bucket and --key are required")
	}

	a, err := app.Open(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.Service.ProcessDocument(ctx, ref)
	if !result.Succeeded() {
		return result.Err
	}
	fmt.Printf("%s\t%s\t%s\t%s\n", result.Receipt.ID, result.Receipt.Vendor, result.Receipt.Total, result.Outcome)
	return nil
}
