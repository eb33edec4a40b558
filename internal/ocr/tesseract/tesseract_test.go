package tesseract

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os/exec"
	"strings"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"docverify/internal/ocr"
)

func TestToLines(t *testing.T) {
	boxes := []gosseract.BoundingBox{
		{Box: image.Rect(10, 20, 110, 40), Word: " CIVIL ID NO ", Confidence: 91},
		{Box: image.Rect(10, 50, 110, 70), Word: "   ", Confidence: 80},
		{Box: image.Rect(10, 80, 130, 100), Word: "282010112346", Confidence: 140},
	}

	lines := toLines(boxes)

	require.Len(t, lines, 2)
	assert.Equal(t, "CIVIL ID NO", lines[0].Text)
	assert.InDelta(t, 0.91, lines[0].Confidence, 1e-9)
	assert.Equal(t, ocr.Region{X: 10, Y: 20, Width: 100, Height: 20}, lines[0].Bounds)
	assert.Equal(t, 1.0, lines[1].Confidence, "confidence is clamped")
}

func TestRecognizeRejectsBadInput(t *testing.T) {
	e := New()

	_, err := e.Recognize(context.Background(), ocr.Input{})
	assert.Equal(t, ocr.ErrorBadInput, ocr.CategoryOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Recognize(ctx, ocr.Input{Image: image.NewGray(image.Rect(0, 0, 1, 1))})
	assert.Equal(t, ocr.ErrorTimeout, ocr.CategoryOf(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestIsEmptyPage(t *testing.T) {
	assert.True(t, isEmptyPage(errors.New("Empty page!!")))
	assert.False(t, isEmptyPage(errors.New("failed to init")))
	assert.False(t, isEmptyPage(nil))
}

// ensureTesseractAvailable checks that the tesseract binary and English
// trained data are reachable.
func ensureTesseractAvailable(t *testing.T, e *Engine) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
	if err := e.Health(context.Background()); err != nil {
		t.Skipf("tesseract unhealthy: %v", err)
	}
}

func TestRecognizeRendersLines(t *testing.T) {
	e := New(WithLanguages("eng"))
	ensureTesseractAvailable(t, e)

	small := image.NewRGBA(image.Rect(0, 0, 200, 40))
	xdraw.Draw(small, small.Bounds(), &image.Uniform{C: color.White}, image.Point{}, xdraw.Src)
	d := &font.Drawer{Dst: small, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(10, 25)}
	d.DrawString("Hello Card")

	img := image.NewRGBA(image.Rect(0, 0, 800, 160))
	xdraw.NearestNeighbor.Scale(img, img.Bounds(), small, small.Bounds(), xdraw.Src, nil)

	res, err := e.Recognize(context.Background(), ocr.Input{ID: "card", Image: img})
	require.NoError(t, err)
	assert.Equal(t, "card", res.InputID)
	require.NotEmpty(t, res.Lines)
	assert.Contains(t, strings.ToLower(res.PlainText()), "hello")
}
