package config

import (
	"log/slog"

	"docverify/internal/domain"
	"docverify/internal/extraction/labels"
	"docverify/internal/imaging"
	"docverify/internal/retry"
	"docverify/internal/scan"
	"docverify/internal/scan/metrics"
	"docverify/internal/validation"
)

var labelKinds = func() []string {
	out := make([]string, 0, len(domain.AllFields))
	for _, k := range domain.AllFields {
		out = append(out, string(k))
	}
	return out
}()

// RetryPolicy converts the retry settings.
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		LowConfidenceThreshold:       c.Retry.LowConfidenceThreshold,
		RetryLowConfidenceOnOriginal: c.Retry.LowConfidenceOnOriginal,
		RetryMissingFields:           c.Retry.MissingKeyFields,
		TryRotations:                 c.Retry.TryRotations,
		RotationAngles:               c.Retry.RotationAngles,
		MaxDeskewAngle:               c.Retry.MaxDeskewAngle,
		MaxAttempts:                  c.Retry.MaxAttempts,
	}
}

func (c Config) ValidationConfig() validation.Config {
	return validation.Config{
		MinAge:              c.Validation.MinAge,
		MaxAge:              c.Validation.MaxAge,
		SimilarityThreshold: c.Validation.NameSimilarityThreshold,
	}
}

func (c Config) ImagingOptions() imaging.Options {
	return imaging.Options{MaxDeskewAngle: c.Retry.MaxDeskewAngle, MinWidth: c.Input.MinWidth}
}

// LabelDictionary is the built-in dictionary extended with configured labels.
func (c Config) LabelDictionary() *labels.Dictionary {
	dict := labels.Default()
	if len(c.Labels) == 0 {
		return dict
	}
	extra := make(map[domain.FieldKind][]string, len(c.Labels))
	for kind, phrases := range c.Labels {
		extra[domain.FieldKind(kind)] = phrases
	}
	return dict.Extend(extra)
}

// ScanOptions assembles the scan service options shared by the server and
// the CLI.
func (c Config) ScanOptions(logger *slog.Logger, m *metrics.Metrics) []scan.Option {
	return []scan.Option{
		scan.WithLogger(logger),
		scan.WithMetrics(m),
		scan.WithPolicy(c.RetryPolicy()),
		scan.WithValidation(c.ValidationConfig()),
		scan.WithImaging(c.ImagingOptions()),
		scan.WithLabels(c.LabelDictionary()),
		scan.WithMaxBytes(c.MaxBytes()),
		scan.WithLanguages(c.OCR.Languages),
		scan.WithAttemptTimeout(c.OCR.AttemptTimeout),
	}
}
