// Package preprocess implements the deterministic image transforms applied
// before any OCR pass: grayscale conversion, skew correction, adaptive
// binarization and median-filter denoising, in that fixed order.
package preprocess

import (
	"image"
	"image/color"
	"math"
)

const (
	// Adaptive binarization parameters.
	thresholdBlockSize = 11
	thresholdOffset    = 2.0

	// Denoising kernel size.
	medianKernelSize = 3

	// Skew below this magnitude (degrees) is left alone.
	maxTolerableSkew = 0.5
)

// Apply runs the full preprocessing pipeline on img.
func Apply(img image.Image) *image.Gray {
	g := Grayscale(img)
	g = Deskew(g)
	g = AdaptiveThreshold(g, thresholdBlockSize, thresholdOffset)
	return MedianFilter(g, medianKernelSize)
}

// Grayscale converts img to 8-bit luminance.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetGray(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return out
}

// Deskew measures the dominant line angle and rotates the image about its
// center when the magnitude exceeds 0.5 degrees. The output canvas keeps the
// input dimensions. When no lines are detected the image is returned
// unrotated; that is not an error.
func Deskew(g *image.Gray) *image.Gray {
	angle, ok := DetectSkewAngle(g)
	if !ok || math.Abs(angle) <= maxTolerableSkew {
		return g
	}
	return Rotate(g, angle)
}

// Rotate rotates the image content by -deg degrees about the center, keeping
// the canvas size, so a feature measured at deg ends up level. Bilinear
// sampling; out-of-canvas samples read as white.
func Rotate(g *image.Gray, deg float64) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	cx, cy := float64(w-1)/2, float64(h-1)/2

	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			sx := cos*dx - sin*dy + cx
			sy := sin*dx + cos*dy + cy
			out.SetGray(x, y, color.Gray{Y: sampleBilinear(g, sx, sy)})
		}
	}
	return out
}

func sampleBilinear(g *image.Gray, x, y float64) uint8 {
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	fx, fy := x-float64(x0), y-float64(y0)

	v00 := float64(pixelOrWhite(g, x0, y0))
	v10 := float64(pixelOrWhite(g, x0+1, y0))
	v01 := float64(pixelOrWhite(g, x0, y0+1))
	v11 := float64(pixelOrWhite(g, x0+1, y0+1))

	top := v00*(1-fx) + v10*fx
	bot := v01*(1-fx) + v11*fx
	return uint8(math.Round(top*(1-fy) + bot*fy))
}

func pixelOrWhite(g *image.Gray, x, y int) uint8 {
	if x < g.Rect.Min.X || x >= g.Rect.Max.X || y < g.Rect.Min.Y || y >= g.Rect.Max.Y {
		return 255
	}
	return g.GrayAt(x, y).Y
}

// AdaptiveThreshold binarizes g against a Gaussian-weighted local mean over
// block x block neighborhoods, offset by c: pixels brighter than the local
// threshold become white, the rest black.
func AdaptiveThreshold(g *image.Gray, block int, c float64) *image.Gray {
	if block%2 == 0 {
		block++
	}
	local := gaussianBlur(g, block)
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := local[y*w+x] - c
			if float64(g.GrayAt(g.Rect.Min.X+x, g.Rect.Min.Y+y).Y) > t {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// gaussianBlur computes a separable Gaussian-weighted mean with kernel size
// k, replicating edge pixels at the border. Sigma follows the usual
// size-derived default: 0.3*((k-1)/2 - 1) + 0.8.
func gaussianBlur(g *image.Gray, k int) []float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	radius := k / 2
	sigma := 0.3*(float64(k-1)/2-1) + 0.8

	kernel := make([]float64, k)
	var sum float64
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	clampX := func(x int) int {
		if x < 0 {
			return 0
		}
		if x >= w {
			return w - 1
		}
		return x
	}
	clampY := func(y int) int {
		if y < 0 {
			return 0
		}
		if y >= h {
			return h - 1
		}
		return y
	}

	// Horizontal pass.
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v float64
			for i, kw := range kernel {
				sx := clampX(x + i - radius)
				v += kw * float64(g.GrayAt(g.Rect.Min.X+sx, g.Rect.Min.Y+y).Y)
			}
			tmp[y*w+x] = v
		}
	}
	// Vertical pass.
	outv := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v float64
			for i, kw := range kernel {
				sy := clampY(y + i - radius)
				v += kw * tmp[sy*w+x]
			}
			outv[y*w+x] = v
		}
	}
	return outv
}

// MedianFilter applies a k x k median filter, replicating border pixels.
func MedianFilter(g *image.Gray, k int) *image.Gray {
	if k%2 == 0 {
		k++
	}
	radius := k / 2
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	window := make([]uint8, 0, k*k)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			window = window[:0]
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					sx, sy := x+dx, y+dy
					if sx < 0 {
						sx = 0
					} else if sx >= w {
						sx = w - 1
					}
					if sy < 0 {
						sy = 0
					} else if sy >= h {
						sy = h - 1
					}
					window = append(window, g.GrayAt(g.Rect.Min.X+sx, g.Rect.Min.Y+sy).Y)
				}
			}
			out.SetGray(x, y, color.Gray{Y: medianOf(window)})
		}
	}
	return out
}

func medianOf(vals []uint8) uint8 {
	// Counting sort: values are bytes and windows are tiny.
	var counts [256]int
	for _, v := range vals {
		counts[v]++
	}
	mid := len(vals) / 2
	seen := 0
	for v, n := range counts {
		seen += n
		if seen > mid {
			return uint8(v)
		}
	}
	return 0
}
