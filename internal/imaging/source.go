package imaging

import (
	"context"
	"fmt"
	"image"
	"sync"

	"docverify/internal/domain"
	"docverify/pkg/platform/sentinel"
)

// Source renders the variants of one document. The preprocessed rendition is
// computed on first use and shared; rotations are derived from the original.
type Source struct {
	original image.Image
	opts     Options

	once     sync.Once
	prepared Prepared
}

// NewSource wraps a decoded document.
func NewSource(img image.Image, opts Options) *Source {
	return &Source{original: img, opts: opts}
}

// Variant returns the image for v.
func (s *Source) Variant(ctx context.Context, v domain.Variant) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch v.Kind {
	case domain.VariantPreprocessed:
		return s.prepare().Image, nil
	case domain.VariantOriginal:
		return s.original, nil
	case domain.VariantRotated:
		return Rotate(s.original, v.Angle), nil
	default:
		return nil, fmt.Errorf("variant %q: %w", v.Kind, sentinel.ErrUnsupported)
	}
}

// SkewAngle is the deskew correction applied to the preprocessed variant.
func (s *Source) SkewAngle() float64 {
	return s.prepare().SkewAngle
}

func (s *Source) prepare() Prepared {
	s.once.Do(func() { s.prepared = Preprocess(s.original, s.opts) })
	return s.prepared
}
