package crop

import (
	"context"
	"image"
)

// Strategy names. These are frozen: they key the aggressiveness multiplier
// table and are persisted in cache rows.
const (
	StrategyRuleOfThirds   = "rule_of_thirds"
	StrategyCenterWeighted = "center_weighted"
	StrategyEntropy        = "entropy"
	StrategyEdgeDetection  = "edge_detection"
)

// Strategy scores candidate crop windows for one source image and target
// size. Implementations must be pure: no shared mutable state, and identical
// pixel input yields identical output.
type Strategy interface {
	// Name returns the frozen strategy tag.
	Name() string
	// BaseWeight returns the strategy's contribution weight in (0,1].
	BaseWeight() float64
	// MinConfidence returns the score floor below which the selection
	// engine discards this strategy's output.
	MinConfidence() float64
	// EnabledByDefault reports whether the strategy ships enabled.
	EnabledByDefault() bool
	// Analyze scores the best window placement for the target size.
	// It must honor ctx cancellation between units of work.
	Analyze(ctx context.Context, img image.Image, targetWidth, targetHeight int) (Score, error)
}

// Registry is the closed, ordered set of strategies. The order is load-
// bearing: when two strategies produce identical weighted scores the first
// one in registry order wins.
type Registry struct {
	strategies []Strategy
}

// NewRegistry builds the standard registry with the given tuning.
func NewRegistry(tuning TuningConfig) *Registry {
	return &Registry{strategies: []Strategy{
		newRuleOfThirdsStrategy(tuning),
		newCenterWeightedStrategy(tuning),
		newEntropyStrategy(tuning),
		newEdgeDetectionStrategy(tuning),
	}}
}

// All returns the strategies in registry order.
func (r *Registry) All() []Strategy {
	return r.strategies
}

// Enabled returns the strategies switched on by the given settings, in
// registry order.
func (r *Registry) Enabled(settings Settings) []Strategy {
	var out []Strategy
	for _, s := range r.strategies {
		if settingEnables(settings, s.Name()) {
			out = append(out, s)
		}
	}
	return out
}

// Lookup returns the strategy with the given name, or nil.
func (r *Registry) Lookup(name string) Strategy {
	for _, s := range r.strategies {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func settingEnables(settings Settings, name string) bool {
	switch name {
	case StrategyRuleOfThirds:
		return settings.RuleOfThirds
	case StrategyCenterWeighted:
		return settings.CenterWeighted
	case StrategyEntropy:
		return settings.Entropy
	case StrategyEdgeDetection:
		return settings.EdgeDetection
	default:
		return false
	}
}

// heavyStrategies are the CPU-intensive analyzers; two or more of them
// enabled pushes the call onto the worker pool.
func heavyStrategyCount(settings Settings) int {
	n := 0
	if settings.Entropy {
		n++
	}
	if settings.EdgeDetection {
		n++
	}
	return n
}
