// Package tesseract implements ocr.Engine on top of the gosseract client.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"slices"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"docverify/internal/ocr"
)

// Name is the engine name used in configuration.
const Name = "tesseract"

// DefaultLanguages covers Arabic and English cards.
var DefaultLanguages = []string{"ara", "eng"}

// Engine recognizes text lines with Tesseract. Each call uses its own client,
// so an Engine is safe for concurrent use.
type Engine struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages sets the default trained-data languages.
func WithLanguages(langs ...string) Option {
	return func(e *Engine) {
		if len(langs) > 0 {
			e.languages = langs
		}
	}
}

// New constructs a Tesseract-backed engine.
func New(opts ...Option) *Engine {
	e := &Engine{clientFactory: gosseract.NewClient, languages: DefaultLanguages}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Name() string { return Name }

// Health verifies that trained data exists for every configured language.
func (e *Engine) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	available, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return ocr.NewEngineError(ocr.ErrorUnavailable, Name, "list trained data", err)
	}
	for _, lang := range e.languages {
		if !slices.Contains(available, lang) {
			return ocr.NewEngineError(ocr.ErrorUnavailable, Name, fmt.Sprintf("missing trained data for %q", lang), nil)
		}
	}
	return nil
}

type outcome struct {
	res ocr.Result
	err error
}

// Recognize runs OCR on one image. Recognition itself cannot be interrupted;
// when ctx ends first the call returns a timeout and the client is released
// once Tesseract finishes.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, ocr.NewEngineError(ocr.ErrorTimeout, Name, "context done before recognition", err)
	}
	if in.Image == nil {
		return ocr.Result{}, ocr.NewEngineError(ocr.ErrorBadInput, Name, "no image", nil)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, in.Image); err != nil {
		return ocr.Result{}, ocr.NewEngineError(ocr.ErrorBadInput, Name, "encode image", err)
	}

	done := make(chan outcome, 1)
	go func() {
		c := e.clientFactory()
		defer c.Close()
		res, err := e.recognizeWithClient(c, in, buf.Bytes())
		done <- outcome{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return ocr.Result{}, ocr.NewEngineError(ocr.ErrorTimeout, Name, "recognition interrupted", ctx.Err())
	case o := <-done:
		return o.res, o.err
	}
}

func (e *Engine) recognizeWithClient(c *gosseract.Client, in ocr.Input, data []byte) (ocr.Result, error) {
	if err := c.SetImageFromBytes(data); err != nil {
		return ocr.Result{}, ocr.NewEngineError(ocr.ErrorBadInput, Name, "set image", err)
	}
	langs := in.Languages
	if len(langs) == 0 {
		langs = e.languages
	}
	if err := c.SetLanguage(langs...); err != nil {
		return ocr.Result{}, ocr.NewEngineError(ocr.ErrorUnavailable, Name, "set languages", err)
	}
	keys := make([]string, 0, len(in.Metadata))
	for k := range in.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.SetVariable(gosseract.SettableVariable(k), in.Metadata[k]); err != nil {
			return ocr.Result{}, ocr.NewEngineError(ocr.ErrorBadInput, Name, "set variable "+k, err)
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		// Blank pages are an empty result, judged later by confidence.
		if isEmptyPage(err) {
			return ocr.Result{InputID: in.ID, Language: langs[0]}, nil
		}
		return ocr.Result{}, ocr.NewEngineError(ocr.ErrorInternal, Name, "recognize lines", err)
	}

	return ocr.Result{
		InputID:  in.ID,
		Lines:    toLines(boxes),
		Language: langs[0],
	}, nil
}

// toLines converts line-level boxes, scaling Tesseract's 0-100 confidence.
func toLines(boxes []gosseract.BoundingBox) []ocr.TextLine {
	lines := make([]ocr.TextLine, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, ocr.TextLine{
			Text:       text,
			Bounds:     ocr.Region{X: b.Box.Min.X, Y: b.Box.Min.Y, Width: b.Box.Dx(), Height: b.Box.Dy()},
			Confidence: min(max(b.Confidence/100.0, 0), 1),
		})
	}
	return lines
}

func isEmptyPage(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "empty page")
}
