package imaging

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate returns img turned clockwise by angle degrees. Quarter turns are
// exact pixel permutations; other angles are resampled bilinearly onto a
// canvas large enough to hold the result, padded with white.
func Rotate(img image.Image, angle float64) image.Image {
	a := math.Mod(angle, 360)
	if a < 0 {
		a += 360
	}
	switch {
	case nearly(a, 0) || nearly(a, 360):
		return img
	case nearly(a, 90):
		return quarterTurns(img, 1)
	case nearly(a, 180):
		return quarterTurns(img, 2)
	case nearly(a, 270):
		return quarterTurns(img, 3)
	}
	return rotateAffine(img, a)
}

func nearly(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func quarterTurns(img image.Image, turns int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	var out *image.RGBA
	if turns%2 == 1 {
		out = image.NewRGBA(image.Rect(0, 0, h, w))
	} else {
		out = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(b.Min.X+x, b.Min.Y+y)
			switch turns {
			case 1:
				out.Set(h-1-y, x, c)
			case 2:
				out.Set(w-1-x, h-1-y, c)
			case 3:
				out.Set(y, w-1-x, c)
			}
		}
	}
	return out
}

func rotateAffine(img image.Image, angle float64) image.Image {
	b := img.Bounds()
	rad := angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	w, h := float64(b.Dx()), float64(b.Dy())

	dw := int(math.Ceil(math.Abs(w*cos) + math.Abs(h*sin)))
	dh := int(math.Ceil(math.Abs(w*sin) + math.Abs(h*cos)))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)

	// Source pixel space to destination pixel space, rotating about centers.
	cxs, cys := float64(b.Min.X)+w/2, float64(b.Min.Y)+h/2
	cxd, cyd := float64(dw)/2, float64(dh)/2
	s2d := f64.Aff3{
		cos, -sin, cxd - (cos*cxs - sin*cys),
		sin, cos, cyd - (sin*cxs + cos*cys),
	}
	xdraw.BiLinear.Transform(dst, s2d, img, b, xdraw.Over, nil)
	return dst
}
