package crop

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"time"
)

// Coordinates describes a crop window in normalized image space. All fields
// are fractions of the source extent, so a value is valid for any pixel size.
type Coordinates struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Strategy   string  `json:"strategy"`
}

// Validate checks the normalized window invariants: every numeric field in
// [0,1], positive extent, and the window contained in the unit square.
func (c Coordinates) Validate() error {
	if c.X < 0 || c.Y < 0 {
		return fmt.Errorf("crop origin out of bounds: (%f, %f)", c.X, c.Y)
	}
	if c.Width <= 0 || c.Height <= 0 || c.Width > 1 || c.Height > 1 {
		return fmt.Errorf("crop extent out of bounds: %fx%f", c.Width, c.Height)
	}
	if c.X+c.Width > 1+coordEpsilon || c.Y+c.Height > 1+coordEpsilon {
		return fmt.Errorf("crop window exceeds image: x+w=%f y+h=%f", c.X+c.Width, c.Y+c.Height)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence out of range: %f", c.Confidence)
	}
	return nil
}

// coordEpsilon absorbs float rounding when windows are built from pixel math.
const coordEpsilon = 1e-9

// Clamped returns a copy with every field forced into its valid range.
// The engine only constructs valid windows; Clamped guards boundary inputs.
func (c Coordinates) Clamped() Coordinates {
	out := c
	out.X = clamp01(out.X)
	out.Y = clamp01(out.Y)
	out.Width = clamp01(out.Width)
	out.Height = clamp01(out.Height)
	if out.X+out.Width > 1 {
		out.Width = 1 - out.X
	}
	if out.Y+out.Height > 1 {
		out.Height = 1 - out.Y
	}
	out.Confidence = clamp01(out.Confidence)
	return out
}

// WithConfidence returns a copy carrying the given confidence and strategy tag.
func (c Coordinates) WithConfidence(confidence float64, strategy string) Coordinates {
	out := c
	out.Confidence = clamp01(confidence)
	out.Strategy = strategy
	return out
}

// ToRect converts the normalized window into a pixel rectangle for an image
// of the given dimensions.
func (c Coordinates) ToRect(imgWidth, imgHeight int) image.Rectangle {
	x0 := int(c.X * float64(imgWidth))
	y0 := int(c.Y * float64(imgHeight))
	x1 := x0 + int(c.Width*float64(imgWidth)+0.5)
	y1 := y0 + int(c.Height*float64(imgHeight)+0.5)
	if x1 > imgWidth {
		x1 = imgWidth
	}
	if y1 > imgHeight {
		y1 = imgHeight
	}
	return image.Rect(x0, y0, x1, y1)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Score is the output of one strategy for one analysis call. Metrics carries
// the strategy's diagnostic sub-scores keyed by name.
type Score struct {
	Coordinates Coordinates
	Score       float64
	Strategy    string
	Metrics     map[string]float64
}

// Result is the terminal output of one analysis call. AllScores is empty for
// results served from the cache.
type Result struct {
	BestCrop       Coordinates
	AllScores      []Score
	ProcessingTime time.Duration
	FromCache      bool
}

// Aggressiveness selects how strongly the engine seeks content over safety.
type Aggressiveness int

// Aggressiveness levels. The numeric values feed the settings hash and must
// stay stable across releases.
const (
	AggressivenessConservative Aggressiveness = iota
	AggressivenessBalanced
	AggressivenessAggressive
)

// String returns the human readable name of the aggressiveness level.
func (a Aggressiveness) String() string {
	switch a {
	case AggressivenessConservative:
		return "conservative"
	case AggressivenessBalanced:
		return "balanced"
	case AggressivenessAggressive:
		return "aggressive"
	default:
		return fmt.Sprintf("aggressiveness(%d)", int(a))
	}
}

// ParseAggressiveness maps a name back to its level, defaulting to balanced.
func ParseAggressiveness(s string) Aggressiveness {
	switch s {
	case "conservative":
		return AggressivenessConservative
	case "aggressive":
		return AggressivenessAggressive
	default:
		return AggressivenessBalanced
	}
}

// Settings holds the caller-tunable configuration for one analysis call.
// It is a value type; mutation is copy-with-changes.
type Settings struct {
	Aggressiveness    Aggressiveness `json:"aggressiveness"`
	RuleOfThirds      bool           `json:"rule_of_thirds"`
	CenterWeighted    bool           `json:"center_weighted"`
	Entropy           bool           `json:"entropy"`
	EdgeDetection     bool           `json:"edge_detection"`
	MaxProcessingTime time.Duration  `json:"max_processing_time"`
}

// DefaultSettings returns the shipped defaults: the three cheap strategies
// on, edge detection off, balanced weighting.
func DefaultSettings() Settings {
	return Settings{
		Aggressiveness:    AggressivenessBalanced,
		RuleOfThirds:      true,
		CenterWeighted:    true,
		Entropy:           true,
		EdgeDetection:     false,
		MaxProcessingTime: 2 * time.Second,
	}
}

// IsValid reports whether the settings can drive an analysis: a positive
// processing budget and at least one enabled strategy.
func (s Settings) IsValid() bool {
	if s.MaxProcessingTime <= 0 {
		return false
	}
	return s.RuleOfThirds || s.CenterWeighted || s.Entropy || s.EdgeDetection
}

// EnabledCount returns the number of enabled strategy toggles.
func (s Settings) EnabledCount() int {
	n := 0
	for _, on := range []bool{s.RuleOfThirds, s.CenterWeighted, s.Entropy, s.EdgeDetection} {
		if on {
			n++
		}
	}
	return n
}

// settingsDigest is the stable wire form hashed into the settings fingerprint.
// Field set and encoding are frozen for cache compatibility.
type settingsDigest struct {
	Aggressiveness      int   `json:"aggressiveness"`
	RuleOfThirds        bool  `json:"rule_of_thirds"`
	CenterWeighted      bool  `json:"center_weighted"`
	Entropy             bool  `json:"entropy"`
	EdgeDetection       bool  `json:"edge_detection"`
	MaxProcessingTimeMs int64 `json:"max_processing_time_ms"`
}

// Hash returns the 16-hex-character settings fingerprint used in cache keys
// and for configuration drift detection.
func (s Settings) Hash() string {
	payload, _ := json.Marshal(settingsDigest{
		Aggressiveness:      int(s.Aggressiveness),
		RuleOfThirds:        s.RuleOfThirds,
		CenterWeighted:      s.CenterWeighted,
		Entropy:             s.Entropy,
		EdgeDetection:       s.EdgeDetection,
		MaxProcessingTimeMs: s.MaxProcessingTime.Milliseconds(),
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:16]
}

// CacheKey derives the content-addressed cache key for one
// (image, target, settings) triple.
func CacheKey(imageURL string, targetWidth, targetHeight int, settings Settings) string {
	raw := fmt.Sprintf("%s_%dx%d_%s", imageURL, targetWidth, targetHeight, settings.Hash())
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ProcessedImage is the result of the end-to-end process entry point: the
// cropped and resized image plus the decision that produced it.
type ProcessedImage struct {
	Image   image.Image
	Result  Result
	Success bool
	Err     error
}
