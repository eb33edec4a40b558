package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"docverify/internal/ocr"
	"docverify/internal/platform/config"
	"docverify/internal/platform/logger"
	"docverify/internal/scan"
	"docverify/internal/scan/metrics"
)

// app carries the process dependencies so commands can be exercised in tests.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)
	now       func() time.Time
	newEngine func(ctx context.Context, cfg config.Config) (ocr.Engine, error)

	configPath string
	engine     string
	logLevel   string

	cfg     config.Config
	service *scan.Service
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "docverify",
		Short:         "Screen identity document scans for plausible authenticity",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file (defaults to $"+config.FileEnv+")")
	flags.StringVar(&a.engine, "ocr-engine", "", "OCR engine override (auto, tesseract)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newScanCmd(a), newBatchCmd(a))
	return root
}

func (a *app) setup(ctx context.Context) error {
	path := a.configPath
	if path == "" {
		path, _ = a.lookupEnv(config.FileEnv)
	}
	cfg, err := config.LoadWith(path, a.lookupEnv)
	if err != nil {
		return err
	}
	if a.engine != "" {
		cfg.OCR.Engine = a.engine
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Logs go to stderr so stdout stays parseable JSON.
	log, err := logger.New(a.stderr, cfg.Log.Level, "text")
	if err != nil {
		return err
	}
	engine, err := a.newEngine(ctx, cfg)
	if err != nil {
		return fmt.Errorf("select OCR engine: %w", err)
	}
	svc, err := scan.New(engine, cfg.ScanOptions(log, metrics.New(prometheus.NewRegistry()))...)
	if err != nil {
		return err
	}
	a.cfg, a.service = cfg, svc
	return nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
