package domain

import (
	"fmt"
	"strconv"
)

// VariantKind names an image variant offered to OCR.
type VariantKind string

const (
	VariantPreprocessed VariantKind = "preprocessed"
	VariantOriginal     VariantKind = "original"
	VariantRotated      VariantKind = "rotated"
)

// Variant identifies one image variant. Angle is only meaningful for rotated
// variants and is measured in degrees clockwise.
type Variant struct {
	Kind  VariantKind
	Angle float64
}

var (
	Preprocessed = Variant{Kind: VariantPreprocessed}
	Original     = Variant{Kind: VariantOriginal}
)

// Rotated returns the rotated variant for angle.
func Rotated(angle float64) Variant {
	return Variant{Kind: VariantRotated, Angle: angle}
}

func (v Variant) String() string {
	if v.Kind == VariantRotated {
		return fmt.Sprintf("rotated_%s", strconv.FormatFloat(v.Angle, 'f', -1, 64))
	}
	return string(v.Kind)
}

// ScanAttempt records one OCR invocation on one variant.
type ScanAttempt struct {
	Index      int
	Variant    Variant
	Engine     string
	Tokens     []RawToken
	Confidence float64
	Err        error
}

// NewScanAttempt builds an attempt and computes its aggregate confidence.
func NewScanAttempt(index int, variant Variant, engine string, tokens []RawToken, err error) ScanAttempt {
	a := ScanAttempt{Index: index, Variant: variant, Engine: engine, Tokens: tokens, Err: err}
	if err == nil {
		a.Confidence = AggregateConfidence(tokens)
	}
	return a
}

// Failed reports whether OCR did not produce usable output. An attempt that
// returned no tokens counts as failed even without an error.
func (a ScanAttempt) Failed() bool {
	return a.Err != nil || len(a.Tokens) == 0
}

// AggregateConfidence is the mean token confidence, 0 for no tokens.
func AggregateConfidence(tokens []RawToken) float64 {
	if len(tokens) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range tokens {
		sum += clamp01(t.Confidence)
	}
	return sum / float64(len(tokens))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
