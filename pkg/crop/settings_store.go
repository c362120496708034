package crop

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SettingsStore persists the user's crop settings as JSON. Saving is
// atomic (tmp + rename) and validates first: settings failing IsValid never
// reach disk, so the engine only ever loads usable configurations.
type SettingsStore struct {
	mu   sync.Mutex
	path string
}

// NewSettingsStore creates a store writing to path.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{path: path}
}

// persistedSettings is the on-disk form. The duration is stored in
// milliseconds so the file stays editable by hand.
type persistedSettings struct {
	Aggressiveness      string `json:"aggressiveness"`
	RuleOfThirds        bool   `json:"rule_of_thirds"`
	CenterWeighted      bool   `json:"center_weighted"`
	Entropy             bool   `json:"entropy"`
	EdgeDetection       bool   `json:"edge_detection"`
	MaxProcessingTimeMs int64  `json:"max_processing_time_ms"`
}

// Load reads the persisted settings, falling back to the defaults when the
// file is absent. A stored file that fails validation is also replaced by
// the defaults rather than handed to the engine.
func (s *SettingsStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return DefaultSettings(), fmt.Errorf("reading settings: %w", err)
	}

	var stored persistedSettings
	if err := json.Unmarshal(data, &stored); err != nil {
		return DefaultSettings(), fmt.Errorf("parsing settings: %w", err)
	}

	settings := Settings{
		Aggressiveness:    ParseAggressiveness(stored.Aggressiveness),
		RuleOfThirds:      stored.RuleOfThirds,
		CenterWeighted:    stored.CenterWeighted,
		Entropy:           stored.Entropy,
		EdgeDetection:     stored.EdgeDetection,
		MaxProcessingTime: time.Duration(stored.MaxProcessingTimeMs) * time.Millisecond,
	}
	if !settings.IsValid() {
		return DefaultSettings(), fmt.Errorf("stored settings invalid, using defaults")
	}
	return settings, nil
}

// Save validates and persists the settings. Invalid settings are rejected
// and the file is left untouched.
func (s *SettingsStore) Save(settings Settings) error {
	if !settings.IsValid() {
		return fmt.Errorf("rejecting invalid settings: need a positive processing budget and at least one enabled strategy")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := persistedSettings{
		Aggressiveness:      settings.Aggressiveness.String(),
		RuleOfThirds:        settings.RuleOfThirds,
		CenterWeighted:      settings.CenterWeighted,
		Entropy:             settings.Entropy,
		EdgeDetection:       settings.EdgeDetection,
		MaxProcessingTimeMs: settings.MaxProcessingTime.Milliseconds(),
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}
