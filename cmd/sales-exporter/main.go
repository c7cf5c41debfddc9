package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finchloft/sales-exporter/internal/archive"
	"github.com/finchloft/sales-exporter/internal/config"
	"github.com/finchloft/sales-exporter/internal/exporter"
	"github.com/finchloft/sales-exporter/internal/logging"
	"github.com/finchloft/sales-exporter/internal/mailer"
	"github.com/finchloft/sales-exporter/internal/runlog"
	"github.com/finchloft/sales-exporter/internal/source"
	"github.com/finchloft/sales-exporter/internal/watermark"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file (env overrides)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sales-exporter: %v\n", err)
		os.Exit(2)
	}

	logging.Setup(logging.Config{Format: cfg.Log.Format, Level: cfg.Log.Level})
	slog.Info("sales exporter starting", "version", exporter.Version, "git_sha", exporter.GitSHA)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown handler
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		slog.Info("received signal, cancelling run", "signal", sig.String())
		cancel()
	}()

	src, err := source.Open(source.Config{
		Server:   cfg.SQL.Server,
		Database: cfg.SQL.Database,
		User:     cfg.SQL.User,
		Password: cfg.SQL.Password,
	})
	if err != nil {
		runlog.New(cfg.RunLog).Record(runlog.Entry{
			At:      time.Now(),
			Outcome: runlog.OutcomeFailure,
			Reason:  "connection error",
		})
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer src.Close()

	notifier := mailer.New(mailer.Config{
		Server:    cfg.SMTP.Server,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		Recipient: cfg.SMTP.Recipient,
	})

	var arch archive.Store
	if cfg.Archive.Backend != "" {
		arch, err = archive.New(ctx, archive.Config{
			Backend: cfg.Archive.Backend,
			Bucket:  cfg.Archive.Bucket,
			Dir:     cfg.Archive.Dir,
			Prefix:  cfg.Archive.Prefix,
			Region:  cfg.Archive.Region,
		})
		if err != nil {
			// Archival is a convenience copy; run without it.
			slog.Warn("failed to open archive store, continuing without", "error", err)
		} else {
			defer arch.Close()
		}
	}

	exp := exporter.New(cfg,
		watermark.NewFileStore(cfg.Watermark.File),
		src,
		notifier,
		runlog.New(cfg.RunLog),
		arch,
	)

	if err := exp.Run(ctx); err != nil {
		slog.Error("export run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("export run finished")
}
