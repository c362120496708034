package crop

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// FitWindow computes the normalized crop window that matches the target
// aspect ratio, anchored at the given offset along the free axis.
//
// The fitting rule is shared by every strategy and by the fallback
// generator: when the source is wider than the target, the window spans the
// full height and slides horizontally; when the source is taller, it spans
// the full width and slides vertically. Exact-match ratios yield the full
// image.
//
// offset is the position of the window along the free axis in [0,1], where
// 0.5 is centered.
func FitWindow(srcWidth, srcHeight, targetWidth, targetHeight int, offset float64) Coordinates {
	if srcWidth <= 0 || srcHeight <= 0 || targetWidth <= 0 || targetHeight <= 0 {
		return Coordinates{Width: 1, Height: 1}
	}

	srcAspect := float64(srcWidth) / float64(srcHeight)
	targetAspect := float64(targetWidth) / float64(targetHeight)
	offset = clamp01(offset)

	switch {
	case math.Abs(srcAspect-targetAspect) < 1e-9:
		return Coordinates{X: 0, Y: 0, Width: 1, Height: 1}
	case srcAspect > targetAspect:
		// Source is wider: full height, horizontal slide.
		w := targetAspect / srcAspect
		return Coordinates{X: (1 - w) * offset, Y: 0, Width: w, Height: 1}
	default:
		// Source is taller: full width, vertical slide.
		h := srcAspect / targetAspect
		return Coordinates{X: 0, Y: (1 - h) * offset, Width: 1, Height: h}
	}
}

// CenteredFitWindow is FitWindow anchored at the center.
func CenteredFitWindow(srcWidth, srcHeight, targetWidth, targetHeight int) Coordinates {
	return FitWindow(srcWidth, srcHeight, targetWidth, targetHeight, 0.5)
}

// candidateOffsets returns the window anchor positions a strategy evaluates
// along the free axis, evenly spaced across [0,1] and always including the
// center.
func candidateOffsets(steps int) []float64 {
	if steps < 1 {
		steps = 1
	}
	if steps == 1 {
		return []float64{0.5}
	}
	offsets := make([]float64, steps)
	for i := 0; i < steps; i++ {
		offsets[i] = float64(i) / float64(steps-1)
	}
	return offsets
}

// lumaGrid is a downsampled grayscale copy of a source image, the shared
// working representation for the content heuristics.
type lumaGrid struct {
	w, h int
	pix  []float64 // row-major luminance in [0,1]
}

// newLumaGrid downsamples img so its longer side is at most maxDim and
// converts it to normalized luminance.
func newLumaGrid(img image.Image, maxDim int) *lumaGrid {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return &lumaGrid{w: 0, h: 0}
	}

	w, h := srcW, srcH
	if maxDim > 0 && (w > maxDim || h > maxDim) {
		scale := float64(maxDim) / float64(max(w, h))
		w = max(1, int(float64(srcW)*scale+0.5))
		h = max(1, int(float64(srcH)*scale+0.5))
	}

	thumb := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, bounds, xdraw.Src, nil)

	g := &lumaGrid{w: w, h: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		row := thumb.Pix[y*thumb.Stride:]
		for x := 0; x < w; x++ {
			r := float64(row[x*4])
			gr := float64(row[x*4+1])
			b := float64(row[x*4+2])
			// Rec. 601 luma
			g.pix[y*g.w+x] = (0.299*r + 0.587*gr + 0.114*b) / 255.0
		}
	}
	return g
}

// at returns the luminance at (x, y), clamping out-of-range coordinates.
func (g *lumaGrid) at(x, y int) float64 {
	if g.w == 0 || g.h == 0 {
		return 0
	}
	if x < 0 {
		x = 0
	} else if x >= g.w {
		x = g.w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= g.h {
		y = g.h - 1
	}
	return g.pix[y*g.w+x]
}

// window maps a normalized crop window onto grid pixel bounds.
func (g *lumaGrid) window(c Coordinates) (x0, y0, x1, y1 int) {
	x0 = int(c.X * float64(g.w))
	y0 = int(c.Y * float64(g.h))
	x1 = x0 + max(1, int(c.Width*float64(g.w)+0.5))
	y1 = y0 + max(1, int(c.Height*float64(g.h)+0.5))
	if x1 > g.w {
		x1 = g.w
	}
	if y1 > g.h {
		y1 = g.h
	}
	return
}

// centroid returns the brightness-weighted center of mass of the window in
// normalized coordinates relative to the window itself.
func (g *lumaGrid) centroid(c Coordinates) (cx, cy float64) {
	x0, y0, x1, y1 := g.window(c)
	var sum, sx, sy float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			v := g.pix[y*g.w+x]
			sum += v
			sx += v * float64(x)
			sy += v * float64(y)
		}
	}
	if sum == 0 {
		return 0.5, 0.5
	}
	spanX := float64(x1-x0) - 1
	spanY := float64(y1-y0) - 1
	if spanX <= 0 {
		cx = 0.5
	} else {
		cx = (sx/sum - float64(x0)) / spanX
	}
	if spanY <= 0 {
		cy = 0.5
	} else {
		cy = (sy/sum - float64(y0)) / spanY
	}
	return clamp01(cx), clamp01(cy)
}

// mean returns the average luminance inside the window.
func (g *lumaGrid) mean(c Coordinates) float64 {
	x0, y0, x1, y1 := g.window(c)
	n := (x1 - x0) * (y1 - y0)
	if n <= 0 {
		return 0
	}
	var sum float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			sum += g.pix[y*g.w+x]
		}
	}
	return sum / float64(n)
}
