package crop

import (
	"github.com/dlevesque1980/dailywallpaper-sub000/util/log"
)

// aggressivenessMultipliers re-weights each strategy's contribution per
// aggressiveness level. The table is frozen; changing it invalidates tuning
// expectations downstream.
var aggressivenessMultipliers = map[string][3]float64{
	//                         conservative, balanced, aggressive
	StrategyCenterWeighted: {1.2, 1.0, 0.8},
	StrategyRuleOfThirds:   {1.0, 1.0, 1.1},
	StrategyEntropy:        {0.8, 1.0, 1.3},
	StrategyEdgeDetection:  {0.6, 1.0, 1.2},
}

// AggressivenessMultiplier returns the selection multiplier for a strategy
// at the given aggressiveness level. Unknown strategies weigh 1.0.
func AggressivenessMultiplier(strategy string, level Aggressiveness) float64 {
	row, ok := aggressivenessMultipliers[strategy]
	if !ok {
		return 1.0
	}
	idx := int(level)
	if idx < 0 || idx > 2 {
		idx = int(AggressivenessBalanced)
	}
	return row[idx]
}

// Selector combines strategy scores into a single winning crop.
type Selector struct {
	registry *Registry
}

// NewSelector creates a selector over the given registry.
func NewSelector(registry *Registry) *Selector {
	return &Selector{registry: registry}
}

// Select picks the winning crop among qualifying scores. A score qualifies
// when it clears its strategy's confidence floor; each qualifier is weighted
// by base weight and the aggressiveness multiplier. Ties keep the earliest
// input, so registry order decides between equal weighted scores.
//
// The second return is false when no score qualifies.
func (sel *Selector) Select(scores []Score, settings Settings) (Coordinates, bool) {
	bestWeighted := -1.0
	var best Coordinates
	found := false

	for _, score := range scores {
		strategy := sel.registry.Lookup(score.Strategy)
		if strategy == nil {
			log.Debugf("Selector: skipping unknown strategy %q", score.Strategy)
			continue
		}
		if score.Score < strategy.MinConfidence() {
			log.Debugf("Selector: %s below confidence floor (%.3f < %.3f)",
				score.Strategy, score.Score, strategy.MinConfidence())
			continue
		}

		weighted := score.Score * strategy.BaseWeight() *
			AggressivenessMultiplier(score.Strategy, settings.Aggressiveness)
		if weighted > bestWeighted {
			bestWeighted = weighted
			best = score.Coordinates
			found = true
		}
	}

	return best, found
}

// Fallback reasons. The reason ends up as the result's strategy tag so
// callers and cache rows can tell degraded decisions apart.
const (
	FallbackCenter         = "fallback_center"
	FallbackMemoryPressure = "memory_pressure"
	FallbackTimeout        = "timeout"
	FallbackAnalyzer       = "analyzer_failure"
	FallbackError          = "error"
	FallbackUltimate       = "ultimate_fallback"
)

// fallbackConfidences maps each reason to its fixed confidence.
var fallbackConfidences = map[string]float64{
	FallbackMemoryPressure: 0.3,
	FallbackTimeout:        0.4,
	FallbackAnalyzer:       0.4,
	FallbackError:          0.2,
	FallbackCenter:         0.5,
}

// FallbackCrop builds the deterministic aspect-fit centered window used
// whenever analysis is skipped, fails, or times out. An unknown reason maps
// to the plain centered fallback.
func FallbackCrop(srcWidth, srcHeight, targetWidth, targetHeight int, reason string) Coordinates {
	confidence, ok := fallbackConfidences[reason]
	if !ok {
		reason = FallbackCenter
		confidence = fallbackConfidences[FallbackCenter]
	}

	if srcWidth <= 0 || srcHeight <= 0 || targetWidth <= 0 || targetHeight <= 0 {
		return UltimateFallback()
	}

	window := CenteredFitWindow(srcWidth, srcHeight, targetWidth, targetHeight)
	if err := window.WithConfidence(confidence, reason).Validate(); err != nil {
		return UltimateFallback()
	}
	return window.WithConfidence(confidence, reason)
}

// UltimateFallback returns the full image, the result of last resort when
// even the fallback computation cannot produce a valid window.
func UltimateFallback() Coordinates {
	return Coordinates{X: 0, Y: 0, Width: 1, Height: 1, Confidence: 0.1, Strategy: FallbackUltimate}
}

// IsFallbackStrategy reports whether a strategy tag names a fallback rather
// than a real analysis decision. Fallback decisions are never cached.
func IsFallbackStrategy(strategy string) bool {
	if strategy == FallbackUltimate {
		return true
	}
	_, ok := fallbackConfidences[strategy]
	return ok
}
