// Package scan orchestrates one document scan: OCR attempts driven by the
// retry controller, candidate extraction, field resolution and validation.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docverify/internal/domain"
	"docverify/internal/extraction/labels"
	"docverify/internal/extraction/resolver"
	"docverify/internal/extraction/scanner"
	"docverify/internal/imaging"
	"docverify/internal/ocr"
	"docverify/internal/retry"
	"docverify/internal/scan/metrics"
	"docverify/internal/validation"
	dErrors "docverify/pkg/domain-errors"
	pstrings "docverify/pkg/platform/strings"
	"docverify/pkg/requestcontext"
)

// VariantSource renders the image variants of one document.
type VariantSource interface {
	Variant(ctx context.Context, v domain.Variant) (image.Image, error)
}

// skewReporter is implemented by sources that deskew their preprocessed
// variant.
type skewReporter interface {
	SkewAngle() float64
}

// Request is one scan.
type Request struct {
	Source       VariantSource
	Expectations domain.Expectations
}

// Service runs scans. Scans share no mutable state, so one Service serves
// concurrent requests.
type Service struct {
	engine    ocr.Engine
	scanner   *scanner.Scanner
	resolver  *resolver.Resolver
	validator *validation.Engine

	policy         retry.Policy
	imaging        imaging.Options
	maxBytes       int64
	languages      []string
	attemptTimeout time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithPolicy sets the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithValidation sets the check thresholds.
func WithValidation(cfg validation.Config) Option {
	return func(s *Service) {
		s.validator = validation.New(cfg)
	}
}

// WithLabels replaces the label dictionary used by the scanner.
func WithLabels(dict *labels.Dictionary) Option {
	return func(s *Service) {
		s.scanner = scanner.New(dict)
	}
}

// WithResolver replaces the field resolver.
func WithResolver(r *resolver.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithImaging sets preprocessing options for ScanImage and ScanBytes.
func WithImaging(opts imaging.Options) Option {
	return func(s *Service) {
		s.imaging = opts
	}
}

// WithMaxBytes limits the encoded document size accepted by ScanBytes.
func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		s.maxBytes = n
	}
}

// WithLanguages sets the OCR language hints.
func WithLanguages(langs []string) Option {
	return func(s *Service) {
		s.languages = langs
	}
}

// WithAttemptTimeout bounds each OCR call; 0 means no per-attempt bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.attemptTimeout = d
	}
}

// New constructs a Service around an OCR engine.
func New(engine ocr.Engine, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, errors.New("ocr engine is required")
	}
	s := &Service{
		engine:    engine,
		scanner:   scanner.New(labels.Default()),
		resolver:  resolver.New(),
		validator: validation.New(validation.DefaultConfig()),
		policy:    retry.DefaultPolicy(),
		imaging:   imaging.DefaultOptions(),
		maxBytes:  imaging.DefaultMaxBytes,
		tracer:    otel.Tracer("docverify/internal/scan"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, fmt.Errorf("retry policy: %w", err)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Engine returns the name of the OCR engine in use.
func (s *Service) Engine() string {
	return s.engine.Name()
}

// Scan runs OCR attempts until the retry controller is done, then resolves
// and validates the fields. OCR failures become warnings; the only errors are
// a malformed request or the context ending.
func (s *Service) Scan(ctx context.Context, req Request) (*domain.ScanResult, error) {
	if req.Source == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "document source is required")
	}
	if err := req.Expectations.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	scanID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "scan.Scan", trace.WithAttributes(attribute.String("scan.id", scanID)))
	defer span.End()
	start := time.Now()

	ctrl := retry.New(s.policy)
	set := domain.NewCandidateSet()
	fields := domain.EmptyFields()
	var warnings []string
	var lines []string

	for {
		v, ok := ctrl.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			ctrl.Cancel()
			span.SetStatus(codes.Error, "canceled")
			return nil, err
		}

		attempt := s.runAttempt(ctx, scanID, len(ctrl.Attempts()), v, req.Source)
		if attempt.Failed() {
			warnings = append(warnings, fmt.Sprintf("OCR attempt on '%s' variant failed: %v", v, attempt.Err))
		} else {
			lines = append(lines, scanner.Lines(attempt)...)
		}

		set.Merge(s.scanner.Scan(attempt, now))
		fields = s.resolver.Resolve(set, now)
		if _, err := ctrl.Record(attempt, fields.Missing(domain.RequiredFields...)); err != nil {
			return nil, err
		}
		if attempt.Failed() && !ocr.IsRetryable(attempt.Err) {
			ctrl.Cancel()
			warnings = append(warnings, "OCR engine unavailable; remaining attempts skipped.")
		}
	}

	result := s.assemble(scanID, now, req, ctrl, fields, lines, warnings)
	s.observe(ctx, result, ctrl, time.Since(start))
	span.SetAttributes(
		attribute.String("scan.verdict", string(result.Verdict)),
		attribute.Int("scan.attempts", result.OCR.Attempts),
	)
	return result, nil
}

func (s *Service) runAttempt(ctx context.Context, scanID string, index int, v domain.Variant, src VariantSource) domain.ScanAttempt {
	ctx, span := s.tracer.Start(ctx, "scan.attempt", trace.WithAttributes(
		attribute.String("ocr.variant", v.String()),
		attribute.Int("ocr.attempt", index),
	))
	defer span.End()
	start := time.Now()

	var tokens []domain.RawToken
	img, err := src.Variant(ctx, v)
	if err == nil {
		octx, cancel := ctx, context.CancelFunc(func() {})
		if s.attemptTimeout > 0 {
			octx, cancel = context.WithTimeout(ctx, s.attemptTimeout)
		}
		var res ocr.Result
		res, err = s.engine.Recognize(octx, ocr.Input{
			ID:        fmt.Sprintf("%s/%d", scanID, index),
			Image:     img,
			Languages: s.languages,
		})
		cancel()
		tokens = ocr.Tokens(res)
		if err == nil && len(tokens) == 0 {
			err = ocr.NewEngineError(ocr.ErrorEmptyOutput, s.engine.Name(), "empty result", ocr.ErrEmptyOutput)
		}
	}

	attempt := domain.NewScanAttempt(index, v, s.engine.Name(), tokens, err)
	elapsed := time.Since(start)
	s.metrics.ObserveAttempt(string(v.Kind), attempt.Failed(), elapsed)
	span.SetAttributes(attribute.Float64("ocr.confidence", attempt.Confidence))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ocr.CategoryOf(err)))
		s.logger.WarnContext(ctx, "ocr attempt failed",
			"scan_id", scanID,
			"attempt", index,
			"variant", v.String(),
			"category", ocr.CategoryOf(err),
			"error", err,
		)
		return attempt
	}
	s.logger.DebugContext(ctx, "ocr attempt completed",
		"scan_id", scanID,
		"attempt", index,
		"variant", v.String(),
		"tokens", len(tokens),
		"confidence", attempt.Confidence,
		"duration_ms", elapsed.Milliseconds(),
	)
	return attempt
}

func (s *Service) observe(ctx context.Context, result *domain.ScanResult, ctrl *retry.Controller, elapsed time.Duration) {
	for _, kind := range domain.AllFields {
		s.metrics.ObserveResolution(string(kind), string(result.Fields.Get(kind).Method))
	}
	s.metrics.ObserveScan(string(result.Verdict), result.OCR.Attempts, elapsed)

	// Field values are personal data and stay out of logs.
	s.logger.InfoContext(ctx, "scan completed",
		"scan_id", result.ScanID,
		"request_id", requestcontext.RequestID(ctx),
		"verdict", result.Verdict,
		"document_type", result.DocumentType,
		"attempts", result.OCR.Attempts,
		"termination", ctrl.Reason(),
		"confidence", result.OCR.Confidence,
		"missing", result.Fields.Missing(domain.AllFields...),
		"duration_ms", elapsed.Milliseconds(),
	)
}

func (s *Service) assemble(scanID string, now time.Time, req Request, ctrl *retry.Controller, fields domain.ResolvedFields, lines, warnings []string) *domain.ScanResult {
	attempts := ctrl.Attempts()
	validated := s.validator.Validate(fields, req.Expectations, now)

	if len(attempts) > 0 && !slices.ContainsFunc(attempts, func(a domain.ScanAttempt) bool { return !a.Failed() }) {
		warnings = append(warnings, "OCR produced no usable output.")
	}
	if best := ctrl.BestConfidence(); len(attempts) > 1 && best < s.policy.LowConfidenceThreshold {
		warnings = append(warnings, fmt.Sprintf("Low OCR confidence after fallback attempts (%.2f).", best))
	}
	if fields.CivilID.Present && fields.CivilID.Attempt < len(attempts) {
		if v := attempts[fields.CivilID.Attempt].Variant; v != domain.Preprocessed {
			warnings = append(warnings, fmt.Sprintf("Civil ID read from the '%s' fallback variant.", v))
		}
	}
	warnings = append(warnings, validated.Warnings...)
	if !fields.CivilID.Present {
		warnings = append(warnings, "Civil ID was not extracted from OCR text.")
	}

	warnings = pstrings.DedupeAndTrim(warnings)
	if warnings == nil {
		warnings = []string{}
	}

	history := make([]domain.AttemptSummary, 0, len(attempts))
	for _, a := range attempts {
		history = append(history, domain.Summarize(a))
	}
	var skew float64
	if sr, ok := req.Source.(skewReporter); ok && len(attempts) > 0 {
		skew = sr.SkewAngle()
	}

	return &domain.ScanResult{
		ScanID:       scanID,
		DocumentType: s.scanner.DocumentType(lines),
		Fields:       fields,
		Validation:   validated,
		Verdict:      validated.Verdict,
		Warnings:     warnings,
		OCR: domain.OCRMetadata{
			Engine:      s.engine.Name(),
			Attempts:    len(attempts),
			Confidence:  ctrl.BestConfidence(),
			SkewAngle:   skew,
			Termination: string(ctrl.Reason()),
			History:     history,
		},
		ScannedAt: now,
	}
}
