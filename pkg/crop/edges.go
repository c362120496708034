package crop

import (
	"context"
	"image"
	"math"
)

// edgeDetectionStrategy runs a Sobel gradient pass over a downscaled copy
// and prefers windows that capture strong structural edges. It is the most
// CPU-intensive analyzer and ships disabled.
type edgeDetectionStrategy struct {
	tuning TuningConfig
}

func newEdgeDetectionStrategy(tuning TuningConfig) *edgeDetectionStrategy {
	return &edgeDetectionStrategy{tuning: tuning}
}

func (s *edgeDetectionStrategy) Name() string           { return StrategyEdgeDetection }
func (s *edgeDetectionStrategy) BaseWeight() float64    { return 0.65 }
func (s *edgeDetectionStrategy) MinConfidence() float64 { return 0.1 }
func (s *edgeDetectionStrategy) EnabledByDefault() bool { return false }

func (s *edgeDetectionStrategy) Analyze(ctx context.Context, img image.Image, targetWidth, targetHeight int) (Score, error) {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	grid := newLumaGrid(img, s.tuning.EdgeThumbSize)
	magnitudes, err := sobelMagnitudes(ctx, grid)
	if err != nil {
		return Score{}, err
	}

	best := Score{Strategy: s.Name(), Score: -1}
	for _, offset := range candidateOffsets(s.tuning.CandidateSteps) {
		if err := ctx.Err(); err != nil {
			return Score{}, err
		}

		window := FitWindow(srcW, srcH, targetWidth, targetHeight, offset)
		avg, distribution, strongRatio := s.windowEdgeStats(grid, magnitudes, window)

		score := clamp01(0.5*avg + 0.2*distribution + 0.3*strongRatio)
		if score > best.Score {
			best = Score{
				Coordinates: window.WithConfidence(score, s.Name()),
				Score:       score,
				Strategy:    s.Name(),
				Metrics: map[string]float64{
					"average_edge_strength": avg,
					"edge_distribution":     distribution,
					"strong_edge_ratio":     strongRatio,
				},
			}
		}
	}
	best.Coordinates.Confidence = best.Score
	return best, nil
}

// sobelMagnitudes computes normalized gradient magnitude for every interior
// grid pixel. The ctx check runs per row so cancellation lands quickly on
// large thumbnails.
func sobelMagnitudes(ctx context.Context, grid *lumaGrid) ([]float64, error) {
	mags := make([]float64, grid.w*grid.h)
	for y := 0; y < grid.h; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < grid.w; x++ {
			gx := grid.at(x+1, y-1) + 2*grid.at(x+1, y) + grid.at(x+1, y+1) -
				grid.at(x-1, y-1) - 2*grid.at(x-1, y) - grid.at(x-1, y+1)
			gy := grid.at(x-1, y+1) + 2*grid.at(x, y+1) + grid.at(x+1, y+1) -
				grid.at(x-1, y-1) - 2*grid.at(x, y-1) - grid.at(x+1, y-1)
			// Max Sobel response for luminance in [0,1] is 4*sqrt(2).
			mags[y*grid.w+x] = math.Hypot(gx, gy) / (4 * math.Sqrt2)
		}
	}
	return mags, nil
}

// windowEdgeStats aggregates edge metrics over a window: average strength,
// spatial spread of edge mass, and the fraction of strong edges.
func (s *edgeDetectionStrategy) windowEdgeStats(grid *lumaGrid, mags []float64, window Coordinates) (avg, distribution, strongRatio float64) {
	x0, y0, x1, y1 := grid.window(window)
	n := (x1 - x0) * (y1 - y0)
	if n <= 0 {
		return 0, 0, 0
	}

	midX, midY := (x0+x1)/2, (y0+y1)/2
	var total float64
	var quad [4]float64
	strong := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			m := mags[y*grid.w+x]
			total += m
			if m >= s.tuning.StrongEdgeThreshold {
				strong++
			}
			idx := 0
			if x >= midX {
				idx++
			}
			if y >= midY {
				idx += 2
			}
			quad[idx] += m
		}
	}

	avg = total / float64(n)
	strongRatio = float64(strong) / float64(n)

	if total > 0 {
		var dev float64
		for _, q := range quad {
			dev += math.Abs(q/total - 0.25)
		}
		distribution = clamp01(1 - dev/1.5)
	}
	return avg, distribution, strongRatio
}
