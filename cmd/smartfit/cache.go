package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	maintainTTLHours   int
	maintainMaxEntries int
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the decision cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show decision cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, closeEngine, err := newEngine()
		if err != nil {
			return err
		}
		defer closeEngine()

		stats := processor.CacheStats()
		fmt.Printf("Entries:  %d\n", stats.Entries)
		fmt.Printf("Hits:     %d\n", stats.Hits)
		fmt.Printf("Misses:   %d\n", stats.Misses)
		fmt.Printf("Hit rate: %.1f%%\n", stats.HitRate*100)
		fmt.Printf("Size:     %d bytes\n", stats.SizeBytes)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, closeEngine, err := newEngine()
		if err != nil {
			return err
		}
		defer closeEngine()

		if err := processor.ClearCache(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println("Cache cleared.")
		return nil
	},
}

var cacheMaintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Expire stale decisions and evict over the entry cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, closeEngine, err := newEngine()
		if err != nil {
			return err
		}
		defer closeEngine()

		ttl := time.Duration(maintainTTLHours) * time.Hour
		expired, evicted, err := processor.PerformMaintenance(ttl, maintainMaxEntries)
		if err != nil {
			return fmt.Errorf("maintenance failed: %w", err)
		}
		fmt.Printf("Expired: %d\n", expired)
		fmt.Printf("Evicted: %d\n", evicted)
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <image>",
	Short: "Drop every cached decision for one image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		processor, closeEngine, err := newEngine()
		if err != nil {
			return err
		}
		defer closeEngine()

		removed, err := processor.InvalidateForImage(args[0])
		if err != nil {
			return fmt.Errorf("invalidation failed: %w", err)
		}
		fmt.Printf("Removed %d entries.\n", removed)
		return nil
	},
}

func init() {
	cacheMaintainCmd.Flags().IntVar(&maintainTTLHours, "ttl-hours", 168, "Age in hours beyond which decisions expire")
	cacheMaintainCmd.Flags().IntVar(&maintainMaxEntries, "max-entries", 1000, "Number of most recently used decisions to keep")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheMaintainCmd, cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}
