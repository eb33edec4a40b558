package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"docverify/internal/domain"
	"docverify/pkg/platform/sentinel"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func blank(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// textBars paints dark horizontal bars that stand in for lines of text.
func textBars(w, h int) *image.RGBA {
	img := blank(w, h)
	for top := 40; top+6 < h-40; top += 30 {
		for y := top; y < top+6; y++ {
			for x := 50; x < w-50; x++ {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestDecode(t *testing.T) {
	pngData := encodePNG(t, blank(20, 10))

	t.Run("png", func(t *testing.T) {
		img, format, err := Decode(pngData, DefaultMaxBytes)
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
	})

	t.Run("bmp", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, bmp.Encode(&buf, blank(8, 8)))
		_, format, err := Decode(buf.Bytes(), 0)
		require.NoError(t, err)
		assert.Equal(t, "bmp", format)
	})

	tests := []struct {
		name    string
		data    []byte
		limit   int64
		wantErr error
	}{
		{name: "empty", data: nil, limit: DefaultMaxBytes, wantErr: sentinel.ErrInvalidInput},
		{name: "over limit", data: pngData, limit: int64(len(pngData) - 1), wantErr: sentinel.ErrTooLarge},
		{name: "not an image", data: []byte("%PDF-1.7 not supported"), limit: DefaultMaxBytes, wantErr: sentinel.ErrUnsupported},
		{name: "truncated", data: pngData[:40], limit: DefaultMaxBytes, wantErr: sentinel.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.data, tt.limit)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.png")
	data := encodePNG(t, blank(4, 4))
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := ReadFile(path, DefaultMaxBytes)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = ReadFile(path, 10)
	assert.ErrorIs(t, err, sentinel.ErrTooLarge)

	_, err = ReadFile(filepath.Join(dir, "missing.png"), DefaultMaxBytes)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRotateQuarterTurns(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 3))
	marker := color.RGBA{R: 255, A: 255}
	src.Set(0, 0, marker)

	r90 := Rotate(src, 90)
	assert.Equal(t, image.Rect(0, 0, 3, 2), r90.Bounds())
	assert.Equal(t, marker, r90.At(2, 0), "top-left moves to top-right")

	r270 := Rotate(src, -90)
	assert.Equal(t, marker, r270.At(0, 1), "top-left moves to bottom-left")

	r180 := Rotate(Rotate(src, 180), 180)
	assert.Equal(t, marker, r180.At(0, 0))

	assert.Same(t, src, Rotate(src, 360))
}

func TestRotateArbitraryAngleExpandsCanvas(t *testing.T) {
	out := Rotate(blank(100, 50), 30)
	assert.Equal(t, image.Rect(0, 0, 112, 94), out.Bounds())
	r, g, b, _ := out.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, b}, "corners are padded white")
}

func TestEstimateSkew(t *testing.T) {
	tilted := toGray(Rotate(textBars(600, 400), 5))
	angle := estimateSkew(tilted, otsu(tilted), 12)
	assert.InDelta(t, 5, angle, 1)

	straight := toGray(textBars(600, 400))
	assert.InDelta(t, 0, estimateSkew(straight, otsu(straight), 12), 0.5)

	empty := toGray(blank(300, 200))
	assert.Zero(t, estimateSkew(empty, otsu(empty), 12), "no ink")
	assert.Zero(t, estimateSkew(tilted, otsu(tilted), 0), "deskew disabled")
}

func TestPreprocess(t *testing.T) {
	t.Run("output is binary", func(t *testing.T) {
		p := Preprocess(textBars(600, 400), Options{MaxDeskewAngle: 12})
		for _, v := range p.Image.Pix {
			if v != 0 && v != 255 {
				t.Fatalf("pixel value %d is not binary", v)
			}
		}
	})

	t.Run("upscales narrow scans", func(t *testing.T) {
		p := Preprocess(blank(400, 100), Options{MinWidth: 1200})
		assert.Equal(t, 1200, p.Image.Bounds().Dx())

		p = Preprocess(blank(100, 50), Options{MinWidth: 1200})
		assert.Equal(t, 300, p.Image.Bounds().Dx(), "upscale is capped")
	})

	t.Run("corrects tilt", func(t *testing.T) {
		p := Preprocess(Rotate(textBars(600, 400), 5), Options{MaxDeskewAngle: 12})
		assert.InDelta(t, -5, p.SkewAngle, 1)
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		src := image.NewGray(image.Rect(0, 0, 10, 10))
		for i := range src.Pix {
			src.Pix[i] = 100
		}
		Preprocess(src, Options{})
		assert.Equal(t, uint8(100), src.Pix[0])
	})
}

func TestSource(t *testing.T) {
	ctx := context.Background()
	orig := textBars(300, 200)
	src := NewSource(orig, DefaultOptions())

	img, err := src.Variant(ctx, domain.Original)
	require.NoError(t, err)
	assert.Same(t, orig, img)

	img, err = src.Variant(ctx, domain.Preprocessed)
	require.NoError(t, err)
	assert.IsType(t, &image.Gray{}, img)
	again, _ := src.Variant(ctx, domain.Preprocessed)
	assert.Same(t, img, again, "preprocessing runs once")

	img, err = src.Variant(ctx, domain.Rotated(90))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 300), img.Bounds())

	_, err = src.Variant(ctx, domain.Variant{Kind: "mirrored"})
	assert.ErrorIs(t, err, sentinel.ErrUnsupported)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = src.Variant(canceled, domain.Original)
	assert.ErrorIs(t, err, context.Canceled)
}
