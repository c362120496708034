package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dlevesque1980/dailywallpaper-sub000/config"
	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/crop"
	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/crop/cache"
	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/device"
	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/perf"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	tuningFile     string
	aggressiveness string
	edgeDetection  bool
	maxProcessing  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "smartfit",
	Short: "Content-aware crop decisions for wallpaper images",
	Long: `Smartfit analyzes images with a set of composition strategies
(rule of thirds, center weighting, entropy, edge detection) and picks
the crop window that best fits a target screen size. Decisions are
cached in a local SQLite database keyed by image, target size and
settings.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initEnv)
	rootCmd.PersistentFlags().StringVar(&tuningFile, "tuning", "", "Path to a YAML tuning override file")
	rootCmd.PersistentFlags().StringVar(&aggressiveness, "aggressiveness", "balanced", "Crop aggressiveness: conservative, balanced or aggressive")
	rootCmd.PersistentFlags().BoolVar(&edgeDetection, "edge-detection", false, "Enable the edge detection strategy")
	rootCmd.PersistentFlags().DurationVar(&maxProcessing, "max-processing", 2*time.Second, "Per-image analysis budget")
}

func initEnv() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// cliSettings builds analysis settings from the persistent flags, layered
// over the saved settings file when one exists.
func cliSettings() crop.Settings {
	store := crop.NewSettingsStore(config.GetSettingsPath())
	settings, err := store.Load()
	if err != nil {
		settings = crop.DefaultSettings()
	}
	settings.Aggressiveness = crop.ParseAggressiveness(aggressiveness)
	settings.EdgeDetection = edgeDetection
	settings.MaxProcessingTime = maxProcessing
	return settings
}

// newEngine wires the full processor: SQLite cache, device detector,
// battery manager and performance monitor. The returned closer stops the
// worker pool and closes the cache database.
func newEngine() (*crop.Processor, func(), error) {
	if err := config.EnsurePath(); err != nil {
		return nil, nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	tuning := crop.DefaultTuningConfig()
	if tuningFile != "" {
		loaded, err := crop.LoadTuningConfig(tuningFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load tuning file: %w", err)
		}
		tuning = loaded
	}

	store, err := cache.Open(config.GetCacheDBPath(), cache.DefaultTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open decision cache: %w", err)
	}

	processor := crop.NewProcessor(
		store,
		perf.NewMonitor(),
		device.NewDetector(),
		device.NewBatteryManager(),
		tuning,
	)
	closer := func() {
		processor.Close()
		_ = store.Close()
	}
	return processor, closer, nil
}
