// Command docverify scans identity documents from the command line and prints
// the results as JSON.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docverify/internal/ocr"
	"docverify/internal/ocr/tesseract"
	"docverify/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		lookupEnv: os.LookupEnv,
		now:       time.Now,
		newEngine: selectEngine,
	}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func selectEngine(ctx context.Context, cfg config.Config) (ocr.Engine, error) {
	registry := ocr.NewRegistry()
	if err := registry.Register(tesseract.New(tesseract.WithLanguages(cfg.OCR.Languages...))); err != nil {
		return nil, err
	}
	return registry.Select(ctx, cfg.OCR.Engine)
}
