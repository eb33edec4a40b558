package imaging

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Options control preprocessing.
type Options struct {
	// MaxDeskewAngle bounds the skew correction in degrees. Estimates beyond
	// it are usually layout artefacts and are ignored.
	MaxDeskewAngle float64
	// MinWidth upscales narrower images before OCR; 0 disables upscaling.
	MinWidth int
}

// DefaultOptions mirrors the service defaults.
func DefaultOptions() Options {
	return Options{MaxDeskewAngle: 12, MinWidth: 1200}
}

const (
	maxUpscale       = 3.0
	skewSampleWidth  = 400
	skewStep         = 0.5
	minSkewInk       = 200
	contrastClipFrac = 0.01
)

// Prepared is the OCR-ready rendition of a document.
type Prepared struct {
	Image *image.Gray
	// SkewAngle is the correction applied, in degrees clockwise.
	SkewAngle float64
}

// Preprocess converts img to grayscale, stretches contrast, upscales small
// scans, corrects skew within the configured bound and binarizes.
func Preprocess(img image.Image, opts Options) Prepared {
	gray := toGray(img)
	stretchContrast(gray)
	gray = upscale(gray, opts.MinWidth)

	threshold := otsu(gray)
	skew := estimateSkew(gray, threshold, opts.MaxDeskewAngle)
	if skew != 0 {
		gray = toGray(Rotate(gray, -skew))
		threshold = otsu(gray)
	}
	binarize(gray, threshold)
	return Prepared{Image: gray, SkewAngle: -skew}
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		out := image.NewGray(g.Rect)
		copy(out.Pix, g.Pix)
		return out
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Src)
	return out
}

// stretchContrast maps the 1st..99th luminance percentiles onto 0..255.
func stretchContrast(g *image.Gray) {
	var hist [256]int
	for _, p := range g.Pix {
		hist[p]++
	}
	total := len(g.Pix)
	clip := int(float64(total) * contrastClipFrac)
	lo, hi := 0, 255
	for acc := 0; lo < 255; lo++ {
		acc += hist[lo]
		if acc > clip {
			break
		}
	}
	for acc := 0; hi > 0; hi-- {
		acc += hist[hi]
		if acc > clip {
			break
		}
	}
	if hi <= lo {
		return
	}
	scale := 255.0 / float64(hi-lo)
	var lut [256]uint8
	for i := range lut {
		v := (float64(i) - float64(lo)) * scale
		lut[i] = uint8(math.Round(math.Min(math.Max(v, 0), 255)))
	}
	for i, p := range g.Pix {
		g.Pix[i] = lut[p]
	}
}

func upscale(g *image.Gray, minWidth int) *image.Gray {
	w := g.Bounds().Dx()
	if minWidth <= 0 || w == 0 || w >= minWidth {
		return g
	}
	factor := math.Min(float64(minWidth)/float64(w), maxUpscale)
	dst := image.NewGray(image.Rect(0, 0, int(float64(w)*factor), int(float64(g.Bounds().Dy())*factor)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), g, g.Bounds(), xdraw.Src, nil)
	return dst
}

// otsu returns the global threshold separating ink from background.
func otsu(g *image.Gray) uint8 {
	var hist [256]float64
	for _, p := range g.Pix {
		hist[p]++
	}
	total := float64(len(g.Pix))
	var sum float64
	for i, h := range hist {
		sum += float64(i) * h
	}
	var sumB, wB, best float64
	threshold := uint8(127)
	for i := 0; i < 256; i++ {
		wB += hist[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * hist[i]
		mB, mF := sumB/wB, (sum-sumB)/wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(i)
		}
	}
	return threshold
}

func binarize(g *image.Gray, threshold uint8) {
	for i, p := range g.Pix {
		if p <= threshold {
			g.Pix[i] = 0
		} else {
			g.Pix[i] = 255
		}
	}
}

// estimateSkew returns the clockwise tilt of text lines in degrees, searched
// within ±maxAngle, or 0 when there is too little ink. Each candidate angle
// projects ink pixels onto rotated rows; aligned text gives the sharpest row
// profile.
func estimateSkew(g *image.Gray, threshold uint8, maxAngle float64) float64 {
	if maxAngle <= 0 {
		return 0
	}
	b := g.Bounds()
	step := max(1, b.Dx()/skewSampleWidth)
	type pt struct{ x, y float64 }
	var ink []pt
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			if g.GrayAt(x, y).Y <= threshold {
				ink = append(ink, pt{float64(x), float64(y)})
			}
		}
	}
	if len(ink) < minSkewInk || len(ink) > len(g.Pix)/(2*step*step) {
		return 0
	}

	diag := math.Hypot(float64(b.Dx()), float64(b.Dy()))
	bins := int(diag/float64(step)) + 2
	profile := make([]float64, 2*bins)

	bestAngle, bestScore := 0.0, -1.0
	n := int(maxAngle / skewStep)
	for i := -n; i <= n; i++ {
		a := float64(i) * skewStep
		rad := a * math.Pi / 180
		sin, cos := math.Sin(rad), math.Cos(rad)
		clear(profile)
		for _, p := range ink {
			row := int((p.y*cos-p.x*sin)/float64(step)) + bins
			if row >= 0 && row < len(profile) {
				profile[row]++
			}
		}
		var score float64
		for j := 1; j < len(profile); j++ {
			d := profile[j] - profile[j-1]
			score += d * d
		}
		if score > bestScore || (score == bestScore && math.Abs(a) < math.Abs(bestAngle)) {
			bestScore, bestAngle = score, a
		}
	}
	return bestAngle
}
