// Package ocr defines the contract between the scan service and text
// recognition backends. Backends live in subpackages.
package ocr

import (
	"context"
	"image"
	"strings"

	"docverify/internal/domain"
)

// Region describes a rectangular area in pixel coordinates with the origin in
// the upper-left corner of the image.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input is a single image submitted for recognition.
type Input struct {
	// ID is echoed back in the Result.
	ID    string
	Image image.Image
	// Languages are trained-data hints such as "ara" or "eng".
	Languages []string
	// Metadata passes engine-specific knobs (e.g. "tessedit_pageseg_mode").
	Metadata map[string]string
}

// TextLine is one recognized line of text.
type TextLine struct {
	Text       string
	Bounds     Region
	Confidence float64
}

// Result captures OCR output for a single input, lines in reading order.
type Result struct {
	InputID  string
	Lines    []TextLine
	Language string
}

// PlainText joins the lines with newlines.
func (r Result) PlainText() string {
	texts := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		texts = append(texts, l.Text)
	}
	return strings.Join(texts, "\n")
}

// Engine is the OCR provider contract: one image in, one result out.
// Implementations must be safe for concurrent use.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// HealthChecker is implemented by engines that can report whether their
// backend is usable before any image is submitted.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Tokens converts a result into raw tokens, one per non-blank line.
func Tokens(r Result) []domain.RawToken {
	tokens := make([]domain.RawToken, 0, len(r.Lines))
	for i, l := range r.Lines {
		text := strings.TrimSpace(l.Text)
		if text == "" {
			continue
		}
		tok := domain.RawToken{Text: text, Line: i, Confidence: l.Confidence}
		if !l.Bounds.IsEmpty() {
			tok.Box = &domain.BoundingBox{X: l.Bounds.X, Y: l.Bounds.Y, Width: l.Bounds.Width, Height: l.Bounds.Height}
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
