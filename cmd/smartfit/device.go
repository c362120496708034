package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Show the detected device capability profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, closeEngine, err := newEngine()
		if err != nil {
			return err
		}
		defer closeEngine()

		info := processor.DeviceCapabilityInfo()
		fmt.Printf("Platform:              %s\n", info.Platform)
		fmt.Printf("Memory tier:           %s\n", info.MemoryTier)
		fmt.Printf("Processing tier:       %s\n", info.ProcessingTier)
		fmt.Printf("Overall tier:          %s\n", info.OverallTier)
		fmt.Printf("Battery optimized:     %t\n", info.BatteryOptimized)
		fmt.Printf("Concurrent strategies: %d\n", info.MaxConcurrentStrategies)
		fmt.Printf("Analysis dimension:    %d px\n", info.MaxAnalysisDimension)
		fmt.Printf("Isolate threshold:     %d px\n", info.IsolateThresholdPixels)
		fmt.Printf("Timeout multiplier:    %.1fx\n", info.TimeoutMultiplier)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deviceCmd)
}
