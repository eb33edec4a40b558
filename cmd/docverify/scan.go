package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docverify/internal/domain"
	"docverify/internal/scan"
	"docverify/pkg/requestcontext"
)

func newScanCmd(a *app) *cobra.Command {
	var exp domain.Expectations
	cmd := &cobra.Command{
		Use:   "scan FILE",
		Short: "Scan one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := requestcontext.WithTime(cmd.Context(), a.now())
			result, err := a.service.ScanFile(ctx, args[0], exp)
			if err != nil {
				return fmt.Errorf("scan %s: %w", args[0], err)
			}
			return a.print(result)
		},
	}
	cmd.Flags().StringVar(&exp.Name, "expected-name", "", "name the document should carry")
	cmd.Flags().StringVar(&exp.BirthDate, "expected-dob", "", "birth date the document should carry (YYYY-MM-DD)")
	return cmd
}

type batchEntry struct {
	Path   string             `json:"path"`
	Result *domain.ScanResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func newBatchCmd(a *app) *cobra.Command {
	var exp domain.Expectations
	var concurrency int
	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Scan several independent documents concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := exp.Validate(); err != nil {
				return err
			}
			if concurrency <= 0 {
				concurrency = a.cfg.Batch.Concurrency
			}
			items := make([]scan.BatchItem, len(args))
			for i, path := range args {
				items[i] = scan.BatchItem{Path: path, Expectations: exp}
			}

			ctx := requestcontext.WithTime(cmd.Context(), a.now())
			results, err := a.service.ScanBatch(ctx, items, concurrency)
			if err != nil {
				return err
			}

			entries := make([]batchEntry, len(results))
			failed := 0
			for i, r := range results {
				entries[i] = batchEntry{Path: r.Path, Result: r.Result}
				if r.Err != nil {
					entries[i].Error = r.Err.Error()
					failed++
				}
			}
			if err := a.print(entries); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents could not be scanned", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&exp.Name, "expected-name", "", "name every document should carry")
	cmd.Flags().StringVar(&exp.BirthDate, "expected-dob", "", "birth date every document should carry (YYYY-MM-DD)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "documents scanned at once (defaults to the configured batch concurrency)")
	return cmd
}
