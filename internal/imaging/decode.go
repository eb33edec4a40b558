// Package imaging turns uploaded documents into the image variants the scan
// service feeds to OCR.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"docverify/pkg/platform/sentinel"
)

const (
	// DefaultMaxBytes matches the MAX_FILE_SIZE_MB default of 12.
	DefaultMaxBytes = 12 << 20
	// MaxPixels rejects images whose decoded size would dwarf the upload.
	MaxPixels = 50_000_000
)

// SupportedFormats lists the image formats Decode accepts.
var SupportedFormats = []string{"png", "jpeg", "gif", "bmp", "tiff", "webp"}

// Decode parses an uploaded image. The size limit applies to the encoded
// bytes; a non-positive maxBytes disables it.
func Decode(data []byte, maxBytes int64) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty document: %w", sentinel.ErrInvalidInput)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("document is %d bytes, limit %d: %w", len(data), maxBytes, sentinel.ErrTooLarge)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", fmt.Errorf("unrecognized image format: %w", sentinel.ErrUnsupported)
		}
		return nil, "", fmt.Errorf("read image header: %v: %w", err, sentinel.ErrInvalidInput)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("image has no pixels: %w", sentinel.ErrInvalidInput)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("image is %dx%d pixels: %w", cfg.Width, cfg.Height, sentinel.ErrTooLarge)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %v: %w", format, err, sentinel.ErrInvalidInput)
	}
	return img, format, nil
}

// ReadFile reads a document from disk, checking the size limit before
// reading.
func ReadFile(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, sentinel.ErrNotFound)
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%s is %d bytes, limit %d: %w", path, info.Size(), maxBytes, sentinel.ErrTooLarge)
	}
	return io.ReadAll(f)
}
