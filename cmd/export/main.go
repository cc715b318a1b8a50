package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"teamroping/internal/app"
	"teamroping/internal/config"
	"teamroping/internal/export"
	"teamroping/internal/logger"
	"teamroping/internal/models"
)

var (
	errNoEvent    = errors.New("-event is required")
	errNoDatabase = errors.New("export needs MySQL; the in-memory store holds no saved events")
)

func main() {
	eventID := flag.Int64("event", 0, "event id to export")
	out := flag.String("out", "", "output file (default EXPORT_DIR/event_<id>.xlsx)")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "roping-export")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	err = run(cfg, log, *eventID, *out)
	if err != nil {
		log.Error("export failed", zap.Int64("event_id", *eventID), zap.Error(err))
	}
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run owns every resource it opens so deferred cleanup happens before main
// decides the exit code.
func run(cfg config.Config, log *zap.Logger, eventID int64, out string) error {
	if eventID <= 0 {
		return errNoEvent
	}
	path := out
	if path == "" {
		path = filepath.Join(cfg.ExportDir, fmt.Sprintf("event_%d.xlsx", eventID))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close()
	if a.DB == nil {
		return errNoDatabase
	}

	report, err := a.Service.EventReport(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}
	if err := writeReport(report, path); err != nil {
		return err
	}
	log.Info("event exported",
		zap.Int64("event_id", eventID),
		zap.String("path", path),
		zap.Int("teams", len(report.Teams)),
		zap.Int("runs", len(report.Runs)))
	return nil
}

func writeReport(report *models.EventReport, path string) error {
	data, err := export.Workbook(report)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
