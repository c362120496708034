package crop

import (
	"context"
	"image"
	"math"
)

// entropyStrategy seeks windows with high information density: it measures
// local luminance-histogram entropy over a downsampled copy and prefers
// placements over detailed regions to flat ones.
type entropyStrategy struct {
	tuning TuningConfig
}

func newEntropyStrategy(tuning TuningConfig) *entropyStrategy {
	return &entropyStrategy{tuning: tuning}
}

func (s *entropyStrategy) Name() string           { return StrategyEntropy }
func (s *entropyStrategy) BaseWeight() float64    { return 0.7 }
func (s *entropyStrategy) MinConfidence() float64 { return 0.15 }
func (s *entropyStrategy) EnabledByDefault() bool { return true }

func (s *entropyStrategy) Analyze(ctx context.Context, img image.Image, targetWidth, targetHeight int) (Score, error) {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	grid := newLumaGrid(img, s.tuning.LumaThumbSize)

	best := Score{Strategy: s.Name(), Score: -1}
	for _, offset := range candidateOffsets(s.tuning.CandidateSteps) {
		if err := ctx.Err(); err != nil {
			return Score{}, err
		}

		window := FitWindow(srcW, srcH, targetWidth, targetHeight, offset)
		avgEntropy, entropyVar := s.localEntropy(grid, window)

		// Entropy of a uniform histogram over all bins is log2(bins).
		maxEntropy := math.Log2(float64(s.tuning.HistogramBins))
		density := clamp01(avgEntropy / maxEntropy)

		// Mild penalty for wildly uneven tiles: a window half full of sky
		// and half full of texture should not beat a uniformly rich one.
		variancePenalty := clamp01(entropyVar / (maxEntropy * maxEntropy))
		score := clamp01(density * (1 - 0.3*variancePenalty))

		if score > best.Score {
			best = Score{
				Coordinates: window.WithConfidence(score, s.Name()),
				Score:       score,
				Strategy:    s.Name(),
				Metrics: map[string]float64{
					"average_entropy":  avgEntropy,
					"entropy_variance": entropyVar,
					"content_density":  density,
				},
			}
		}
	}
	best.Coordinates.Confidence = best.Score
	return best, nil
}

// localEntropy tiles the window and returns the mean and variance of the
// per-tile luminance histogram entropy.
func (s *entropyStrategy) localEntropy(grid *lumaGrid, window Coordinates) (mean, variance float64) {
	x0, y0, x1, y1 := grid.window(window)
	tile := s.tuning.EntropyTile
	if tile < 2 {
		tile = 2
	}

	var entropies []float64
	for ty := y0; ty < y1; ty += tile {
		for tx := x0; tx < x1; tx += tile {
			e := s.tileEntropy(grid, tx, ty, min(tx+tile, x1), min(ty+tile, y1))
			entropies = append(entropies, e)
		}
	}
	if len(entropies) == 0 {
		return 0, 0
	}

	var sum float64
	for _, e := range entropies {
		sum += e
	}
	mean = sum / float64(len(entropies))

	for _, e := range entropies {
		variance += (e - mean) * (e - mean)
	}
	variance /= float64(len(entropies))
	return mean, variance
}

// tileEntropy computes Shannon entropy of the luminance histogram over one
// tile, in bits.
func (s *entropyStrategy) tileEntropy(grid *lumaGrid, x0, y0, x1, y1 int) float64 {
	bins := s.tuning.HistogramBins
	hist := make([]int, bins)
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			bin := int(grid.at(x, y) * float64(bins-1))
			hist[bin]++
			n++
		}
	}
	if n == 0 {
		return 0
	}

	var entropy float64
	for _, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(n)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
