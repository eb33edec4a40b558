package scan

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docverify/internal/domain"
	"docverify/internal/imaging"
	"docverify/pkg/platform/sentinel"
	"docverify/pkg/requestcontext"
)

// ScanImage prepares the variants of a decoded image and scans it.
func (s *Service) ScanImage(ctx context.Context, img image.Image, exp domain.Expectations) (*domain.ScanResult, error) {
	if img == nil {
		return nil, errors.New("image is required")
	}
	return s.Scan(ctx, Request{Source: imaging.NewSource(img, s.imaging), Expectations: exp})
}

// ScanBytes decodes an uploaded document and scans it. A document that
// cannot be decoded yields an inconclusive result rather than an error.
func (s *Service) ScanBytes(ctx context.Context, data []byte, exp domain.Expectations) (*domain.ScanResult, error) {
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	img, _, err := imaging.Decode(data, s.maxBytes)
	if err != nil {
		return s.unreadable(ctx, exp, err), nil
	}
	return s.ScanImage(ctx, img, exp)
}

// ScanFile reads and scans a document on disk. A missing file is an error;
// an unreadable one yields an inconclusive result.
func (s *Service) ScanFile(ctx context.Context, path string, exp domain.Expectations) (*domain.ScanResult, error) {
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	data, err := imaging.ReadFile(path, s.maxBytes)
	switch {
	case errors.Is(err, sentinel.ErrTooLarge):
		return s.unreadable(ctx, exp, err), nil
	case err != nil:
		return nil, err
	}
	return s.ScanBytes(ctx, data, exp)
}

func (s *Service) unreadable(ctx context.Context, exp domain.Expectations, cause error) *domain.ScanResult {
	now := requestcontext.Now(ctx)
	fields := domain.EmptyFields()
	validated := s.validator.Validate(fields, exp, now)

	warnings := append([]string{fmt.Sprintf("Document could not be read: %v", cause)}, validated.Warnings...)
	result := &domain.ScanResult{
		ScanID:       uuid.NewString(),
		DocumentType: domain.DocumentUnknown,
		Fields:       fields,
		Validation:   validated,
		Verdict:      domain.VerdictInconclusive,
		Warnings:     warnings,
		OCR:          domain.OCRMetadata{Engine: s.engine.Name()},
		ScannedAt:    now,
	}
	s.logger.WarnContext(ctx, "document unreadable",
		"scan_id", result.ScanID,
		"request_id", requestcontext.RequestID(ctx),
		"error", cause,
	)
	s.metrics.ObserveScan(string(result.Verdict), 0, 0)
	return result
}

// BatchItem is one document of a batch.
type BatchItem struct {
	Path         string
	Expectations domain.Expectations
}

// BatchResult pairs a batch item with its outcome. Exactly one of Result and
// Err is set.
type BatchResult struct {
	Path   string
	Result *domain.ScanResult
	Err    error
}

// ScanBatch scans independent documents concurrently, at most concurrency at
// a time. Results keep the order of items. Per-item failures are reported in
// the results; the returned error is only set when ctx ends.
func (s *Service) ScanBatch(ctx context.Context, items []BatchItem, concurrency int) ([]BatchResult, error) {
	results := make([]BatchResult, len(items))
	var g errgroup.Group
	g.SetLimit(max(concurrency, 1))

	for i, item := range items {
		g.Go(func() error {
			results[i].Path = item.Path
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			res, err := s.ScanFile(ctx, item.Path, item.Expectations)
			results[i].Result, results[i].Err = res, err
			return nil
		})
	}
	_ = g.Wait()
	return results, ctx.Err()
}
