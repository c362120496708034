package crop

import (
	"context"
	"image"
	"math"
)

// ruleOfThirdsStrategy places the crop window so the bright focal mass of
// the scene lands near a thirds grid intersection.
type ruleOfThirdsStrategy struct {
	tuning TuningConfig
}

func newRuleOfThirdsStrategy(tuning TuningConfig) *ruleOfThirdsStrategy {
	return &ruleOfThirdsStrategy{tuning: tuning}
}

func (s *ruleOfThirdsStrategy) Name() string           { return StrategyRuleOfThirds }
func (s *ruleOfThirdsStrategy) BaseWeight() float64    { return 0.8 }
func (s *ruleOfThirdsStrategy) MinConfidence() float64 { return 0.1 }
func (s *ruleOfThirdsStrategy) EnabledByDefault() bool { return true }

// thirds grid intersections in window-relative coordinates.
var thirdsIntersections = [4][2]float64{
	{1.0 / 3.0, 1.0 / 3.0},
	{2.0 / 3.0, 1.0 / 3.0},
	{1.0 / 3.0, 2.0 / 3.0},
	{2.0 / 3.0, 2.0 / 3.0},
}

func (s *ruleOfThirdsStrategy) Analyze(ctx context.Context, img image.Image, targetWidth, targetHeight int) (Score, error) {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	grid := newLumaGrid(img, s.tuning.LumaThumbSize)

	best := Score{Strategy: s.Name(), Score: -1}
	for _, offset := range candidateOffsets(s.tuning.CandidateSteps) {
		if err := ctx.Err(); err != nil {
			return Score{}, err
		}

		window := FitWindow(srcW, srcH, targetWidth, targetHeight, offset)
		fx, fy := grid.centroid(window)

		intersection := intersectionAlignment(fx, fy)
		gridLine := gridLineAlignment(fx, fy)
		distribution := s.contentDistribution(grid, window)
		edgeAvoid := edgeAvoidance(window)

		score := 0.4*intersection + 0.2*gridLine + 0.25*distribution + 0.15*edgeAvoid
		if score > best.Score {
			centerDist := math.Hypot(window.X+window.Width/2-0.5, window.Y+window.Height/2-0.5)
			best = Score{
				Coordinates: window.WithConfidence(score, s.Name()),
				Score:       clamp01(score),
				Strategy:    s.Name(),
				Metrics: map[string]float64{
					"intersection_alignment": intersection,
					"grid_line_alignment":    gridLine,
					"content_distribution":   distribution,
					"edge_avoidance":         edgeAvoid,
					"crop_area_ratio":        window.Width * window.Height,
					"center_distance":        centerDist,
				},
			}
		}
	}
	best.Coordinates.Confidence = best.Score
	return best, nil
}

// intersectionAlignment scores proximity of the focal point to the nearest
// thirds intersection: 1 on the intersection, decaying with distance.
func intersectionAlignment(fx, fy float64) float64 {
	minDist := math.MaxFloat64
	for _, p := range thirdsIntersections {
		d := math.Hypot(fx-p[0], fy-p[1])
		if d < minDist {
			minDist = d
		}
	}
	// The farthest a point can sit from every intersection is at a corner,
	// sqrt(2)/3 away.
	return clamp01(1 - minDist/(math.Sqrt2/3))
}

// gridLineAlignment scores proximity of the focal point to either thirds
// line along each axis.
func gridLineAlignment(fx, fy float64) float64 {
	dx := math.Min(math.Abs(fx-1.0/3.0), math.Abs(fx-2.0/3.0))
	dy := math.Min(math.Abs(fy-1.0/3.0), math.Abs(fy-2.0/3.0))
	return clamp01(1 - (dx+dy)/(2.0/3.0))
}

// contentDistribution rewards windows whose brightness mass is balanced
// across the four quadrants instead of piled onto one side.
func (s *ruleOfThirdsStrategy) contentDistribution(grid *lumaGrid, window Coordinates) float64 {
	x0, y0, x1, y1 := grid.window(window)
	midX, midY := (x0+x1)/2, (y0+y1)/2

	var quad [4]float64
	var total float64
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			v := grid.at(x, y)
			total += v
			idx := 0
			if x >= midX {
				idx++
			}
			if y >= midY {
				idx += 2
			}
			quad[idx] += v
		}
	}
	if total == 0 {
		return 0
	}

	// Perfect balance puts a quarter of the mass in each quadrant.
	var dev float64
	for _, q := range quad {
		dev += math.Abs(q/total - 0.25)
	}
	// dev ranges [0, 1.5]
	return clamp01(1 - dev/1.5)
}

// edgeAvoidance penalizes windows pressed tightly against the image border
// when slack exists on the free axis.
func edgeAvoidance(window Coordinates) float64 {
	slackX := 1 - window.Width
	slackY := 1 - window.Height
	score := 1.0
	if slackX > 1e-9 {
		margin := math.Min(window.X, slackX-window.X) / slackX
		score = math.Min(score, 0.5+margin) // touching the border halves the term
	}
	if slackY > 1e-9 {
		margin := math.Min(window.Y, slackY-window.Y) / slackY
		score = math.Min(score, 0.5+margin)
	}
	return clamp01(score)
}
