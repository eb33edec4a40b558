// Package validation runs authenticity checks over resolved document fields
// and aggregates them into a verdict. Check failures are results, never
// errors, and no check short-circuits another.
package validation

import (
	"fmt"
	"time"

	"docverify/internal/civilid"
	"docverify/internal/domain"
)

// Config holds the thresholds the checks use.
type Config struct {
	MinAge              int
	MaxAge              int
	SimilarityThreshold float64
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{MinAge: 16, MaxAge: 110, SimilarityThreshold: 0.84}
}

// Engine evaluates the checks. It is safe for concurrent use.
type Engine struct {
	cfg        Config
	similarity Similarity
}

// Option configures an Engine.
type Option func(*Engine)

// WithSimilarity replaces the name similarity algorithm.
func WithSimilarity(s Similarity) Option {
	return func(e *Engine) {
		if s != nil {
			e.similarity = s
		}
	}
}

// New creates an Engine.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, similarity: TokenSimilarity{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate runs every check against fields and the caller's expectations.
func (e *Engine) Validate(fields domain.ResolvedFields, exp domain.Expectations, now time.Time) domain.ValidationResult {
	expectedDOB, hasExpectedDOB := exp.ExpectedBirthDate()

	checks := []domain.CheckResult{
		checkFormat(fields.CivilID),
		checkChecksum(fields.CivilID),
		checkPlausibility(fields.BirthDate, e.cfg.MinAge, e.cfg.MaxAge, now),
		checkConsistency(fields.CivilID, fields.BirthDate, now),
		checkName(fields.Name, exp.ExpectedName(), e.similarity, e.cfg.SimilarityThreshold),
		checkExpectedDOB(fields.BirthDate, expectedDOB, hasExpectedDOB),
	}

	return domain.ValidationResult{
		Checks:   checks,
		Verdict:  Aggregate(checks, fields),
		Warnings: warnings(checks, fields, expectedDOB, hasExpectedDOB, now),
	}
}

// Aggregate derives the verdict:
//  1. invalid when a hard check failed
//  2. suspicious when a soft check failed and every hard check passed
//  3. inconclusive when a required field is missing or a hard check was skipped
//  4. valid otherwise
func Aggregate(checks []domain.CheckResult, fields domain.ResolvedFields) domain.Verdict {
	hardFailed, hardSkipped, softFailed := false, false, false
	for _, c := range checks {
		switch {
		case c.Severity == domain.SeverityHard && c.Outcome == domain.OutcomeFailed:
			hardFailed = true
		case c.Severity == domain.SeverityHard && c.Outcome == domain.OutcomeSkipped:
			hardSkipped = true
		case c.Severity == domain.SeveritySoft && c.Outcome == domain.OutcomeFailed:
			softFailed = true
		}
	}

	switch {
	case hardFailed:
		return domain.VerdictInvalid
	case softFailed && !hardSkipped:
		return domain.VerdictSuspicious
	case hardSkipped || len(fields.Missing(domain.RequiredFields...)) > 0:
		return domain.VerdictInconclusive
	default:
		return domain.VerdictValid
	}
}

func warnings(checks []domain.CheckResult, fields domain.ResolvedFields, expectedDOB time.Time, hasExpectedDOB bool, now time.Time) []string {
	var out []string
	if !fields.CivilID.Present && !fields.BirthDate.Present && !fields.Name.Present {
		out = append(out, "No key fields were extracted from OCR output.")
	}
	for _, c := range checks {
		if c.Outcome != domain.OutcomeFailed {
			continue
		}
		switch c.Name {
		case domain.CheckCivilIDFormat:
			out = append(out, "Civil ID format is invalid (must be 12 digits).")
		case domain.CheckCivilIDChecksum:
			out = append(out, "Civil ID checksum failed (community algorithm).")
		case domain.CheckDOBPlausibility:
			out = append(out, "DOB failed plausibility checks.")
		case domain.CheckCivilIDDOB:
			out = append(out, "DOB from OCR does not match DOB encoded in Civil ID.")
		case domain.CheckExpectedNameMatch:
			out = append(out, fmt.Sprintf("Name similarity is low (%.2f).", *c.Score))
		case domain.CheckExpectedDOBMatch:
			out = append(out, "Expected DOB does not match extracted birth date.")
		}
	}
	if fields.BirthDate.Method == domain.MethodDerivedFromID {
		out = append(out, "Birth date derived from Civil ID, not independently confirmed.")
	}
	if hasExpectedDOB && fields.CivilID.Present {
		if encoded, ok := civilid.BirthDate(fields.CivilID.Value, now); ok && !domain.Day(encoded).Equal(domain.Day(expectedDOB)) {
			out = append(out, "Expected DOB does not match DOB encoded in Civil ID.")
		}
	}
	if fields.ExpiryDate.Present && fields.ExpiryDate.Date.Before(domain.Day(now)) {
		out = append(out, fmt.Sprintf("Document expired on %s.", fields.ExpiryDate.Value))
	}
	return out
}
