package main

import (
	"fmt"

	"github.com/dlevesque1980/dailywallpaper-sub000/config"
	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/crop"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or update the saved analysis settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved analysis settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := crop.NewSettingsStore(config.GetSettingsPath())
		settings, err := store.Load()
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		printSettings(settings)
		return nil
	},
}

var settingsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the current flags as the saved settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.EnsurePath(); err != nil {
			return fmt.Errorf("failed to prepare data directory: %w", err)
		}
		settings := cliSettings()
		store := crop.NewSettingsStore(config.GetSettingsPath())
		if err := store.Save(settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		printSettings(settings)
		fmt.Printf("\nSaved to %s\n", config.GetSettingsPath())
		return nil
	},
}

func printSettings(settings crop.Settings) {
	fmt.Printf("Aggressiveness:  %s\n", settings.Aggressiveness)
	fmt.Printf("Rule of thirds:  %t\n", settings.RuleOfThirds)
	fmt.Printf("Center weighted: %t\n", settings.CenterWeighted)
	fmt.Printf("Entropy:         %t\n", settings.Entropy)
	fmt.Printf("Edge detection:  %t\n", settings.EdgeDetection)
	fmt.Printf("Time budget:     %s\n", settings.MaxProcessingTime)
	fmt.Printf("Fingerprint:     %s\n", settings.Hash())
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSaveCmd)
	rootCmd.AddCommand(settingsCmd)
}
