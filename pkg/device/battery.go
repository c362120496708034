package device

import (
	"runtime"
	"sync"
	"time"

	"github.com/dlevesque1980/dailywallpaper-sub000/util/log"
)

// BatteryState is a coarse classification of the power situation. No direct
// battery telemetry is read; the default classifier is a conservative
// platform heuristic.
type BatteryState int

// Battery states, from worst to best.
const (
	BatteryCritical BatteryState = iota
	BatteryLow
	BatteryOptimizationNeeded
	BatteryPluggedIn
)

// String returns the state name.
func (s BatteryState) String() string {
	switch s {
	case BatteryCritical:
		return "critical"
	case BatteryLow:
		return "low"
	case BatteryOptimizationNeeded:
		return "optimization_needed"
	default:
		return "plugged_in"
	}
}

// BatteryClassifier produces the current battery state. Platform builds can
// substitute an implementation that reads real telemetry.
type BatteryClassifier interface {
	Classify() BatteryState
}

// HeuristicClassifier assumes mobile platforms always want optimization and
// desktop platforms are plugged in.
type HeuristicClassifier struct{}

// Classify returns the heuristic battery state for this platform.
func (HeuristicClassifier) Classify() BatteryState {
	if IsMobilePlatform(runtime.GOOS) {
		return BatteryOptimizationNeeded
	}
	return BatteryPluggedIn
}

// OptimizationLevel orders the degradation strategies.
type OptimizationLevel int

// Optimization levels, from no intervention to maximum degradation.
const (
	OptimizationNone OptimizationLevel = iota
	OptimizationMinimal
	OptimizationModerate
	OptimizationAggressive
)

// String returns the level name.
func (l OptimizationLevel) String() string {
	switch l {
	case OptimizationMinimal:
		return "minimal"
	case OptimizationModerate:
		return "moderate"
	case OptimizationAggressive:
		return "aggressive"
	default:
		return "none"
	}
}

// OptimizationStrategy is the fixed parameter set for one optimization
// level. The supervisor applies it to the effective settings before
// analysis.
type OptimizationStrategy struct {
	Level              OptimizationLevel
	DisableEdge        bool
	DisableEntropy     bool
	ThrottleBackground bool
	ProcessingDelay    time.Duration
	DeferAnalysis      bool
	TimeoutMultiplier  float64
}

// strategyTable holds the fixed parameters per level.
var strategyTable = map[OptimizationLevel]OptimizationStrategy{
	OptimizationNone: {
		Level:             OptimizationNone,
		TimeoutMultiplier: 1.0,
	},
	OptimizationMinimal: {
		Level:             OptimizationMinimal,
		DisableEdge:       true,
		TimeoutMultiplier: 0.8,
	},
	OptimizationModerate: {
		Level:              OptimizationModerate,
		DisableEdge:        true,
		ThrottleBackground: true,
		ProcessingDelay:    100 * time.Millisecond,
		TimeoutMultiplier:  0.6,
	},
	OptimizationAggressive: {
		Level:              OptimizationAggressive,
		DisableEdge:        true,
		DisableEntropy:     true,
		ThrottleBackground: true,
		ProcessingDelay:    250 * time.Millisecond,
		DeferAnalysis:      true,
		TimeoutMultiplier:  0.4,
	},
}

// StrategyForLevel returns the fixed strategy for a level.
func StrategyForLevel(level OptimizationLevel) OptimizationStrategy {
	s, ok := strategyTable[level]
	if !ok {
		return strategyTable[OptimizationNone]
	}
	return s
}

// levelFor maps battery state and device tier onto an optimization level.
// Low-tier devices step up one level of caution in the middle states.
func levelFor(state BatteryState, tier Tier) OptimizationLevel {
	switch state {
	case BatteryCritical:
		return OptimizationAggressive
	case BatteryLow:
		if tier == TierLow {
			return OptimizationAggressive
		}
		return OptimizationModerate
	case BatteryOptimizationNeeded:
		if tier == TierLow {
			return OptimizationModerate
		}
		return OptimizationMinimal
	default:
		return OptimizationNone
	}
}

// strategyCacheTTL bounds how long a computed strategy is reused before the
// classifier is consulted again.
const strategyCacheTTL = 5 * time.Minute

// BatteryManager computes the active optimization strategy, caching it for
// a short window because classification is assumed to be slow or noisy.
type BatteryManager struct {
	mu         sync.Mutex
	classifier BatteryClassifier
	cached     *OptimizationStrategy
	cachedAt   time.Time
	now        func() time.Time
}

// NewBatteryManager creates a manager over the heuristic classifier.
func NewBatteryManager() *BatteryManager {
	return NewBatteryManagerWith(HeuristicClassifier{})
}

// NewBatteryManagerWith creates a manager over a custom classifier.
func NewBatteryManagerWith(classifier BatteryClassifier) *BatteryManager {
	return &BatteryManager{classifier: classifier, now: time.Now}
}

// Strategy returns the optimization strategy for the current battery state
// and the given device tier, reusing the cached answer inside the TTL.
func (m *BatteryManager) Strategy(tier Tier) OptimizationStrategy {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil && m.now().Sub(m.cachedAt) < strategyCacheTTL {
		return *m.cached
	}

	state := m.classifier.Classify()
	strategy := StrategyForLevel(levelFor(state, tier))
	m.cached = &strategy
	m.cachedAt = m.now()
	log.Debugf("Battery: state=%s tier=%s level=%s", state, tier, strategy.Level)
	return strategy
}

// Invalidate drops the cached strategy so the next call reclassifies.
func (m *BatteryManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
}
