package crop

import (
	"context"
	"image"
	"math"
)

// centerWeightedStrategy is the conservative analyzer: it favors windows
// that stay near the image center, preserve area, and keep a safety margin
// from the borders.
type centerWeightedStrategy struct {
	tuning TuningConfig
}

func newCenterWeightedStrategy(tuning TuningConfig) *centerWeightedStrategy {
	return &centerWeightedStrategy{tuning: tuning}
}

func (s *centerWeightedStrategy) Name() string           { return StrategyCenterWeighted }
func (s *centerWeightedStrategy) BaseWeight() float64    { return 0.6 }
func (s *centerWeightedStrategy) MinConfidence() float64 { return 0.2 }
func (s *centerWeightedStrategy) EnabledByDefault() bool { return true }

func (s *centerWeightedStrategy) Analyze(ctx context.Context, img image.Image, targetWidth, targetHeight int) (Score, error) {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	srcAspect := float64(srcW) / float64(srcH)
	targetAspect := float64(targetWidth) / float64(targetHeight)

	best := Score{Strategy: s.Name(), Score: -1}
	for _, offset := range candidateOffsets(s.tuning.CandidateSteps) {
		if err := ctx.Err(); err != nil {
			return Score{}, err
		}

		window := FitWindow(srcW, srcH, targetWidth, targetHeight, offset)

		centerDist := math.Hypot(window.X+window.Width/2-0.5, window.Y+window.Height/2-0.5)
		// Normalized against the farthest a fit window's center can drift.
		centerScore := clamp01(1 - centerDist/(math.Sqrt2/2))

		areaRatio := window.Width * window.Height
		contentPreservation := clamp01(areaRatio)

		minMargin := minEdgeMargin(window)
		// A window can keep at most half of the free slack on each side.
		edgeSafety := clamp01(minMargin * 4)

		aspectPreservation := aspectSimilarity(srcAspect, targetAspect)

		score := 0.35*centerScore + 0.3*contentPreservation + 0.15*edgeSafety + 0.2*aspectPreservation
		if score > best.Score {
			best = Score{
				Coordinates: window.WithConfidence(score, s.Name()),
				Score:       clamp01(score),
				Strategy:    s.Name(),
				Metrics: map[string]float64{
					"center_score":         centerScore,
					"content_preservation": contentPreservation,
					"edge_safety":          edgeSafety,
					"aspect_preservation":  aspectPreservation,
					"crop_area_ratio":      areaRatio,
					"distance_from_center": centerDist,
					"min_edge_margin":      minMargin,
				},
			}
		}
	}
	best.Coordinates.Confidence = best.Score
	return best, nil
}

// minEdgeMargin returns the smallest of the four gaps between the window and
// the image border.
func minEdgeMargin(window Coordinates) float64 {
	left := window.X
	top := window.Y
	right := 1 - window.X - window.Width
	bottom := 1 - window.Y - window.Height
	return math.Max(0, math.Min(math.Min(left, right), math.Min(top, bottom)))
}

// aspectSimilarity maps the ratio between two aspect ratios into [0,1],
// with 1 for identical ratios.
func aspectSimilarity(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > b {
		a, b = b, a
	}
	return clamp01(a / b)
}
