package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/crop"
	"github.com/disintegration/imaging"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	batchOutputDir   string
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch <directory> <width> <height>",
	Short: "Analyze every image in a directory at a target size",
	Long: `Walks the directory, analyzes each image and prints a per-strategy
summary. With --output-dir the cropped images are written alongside
their decisions.`,
	Args: cobra.ExactArgs(3),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "Write cropped images into this directory")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 2, "Number of images analyzed in parallel")
	rootCmd.AddCommand(batchCmd)
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	width, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid width %q: %w", args[1], err)
	}
	height, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid height %q: %w", args[2], err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		fmt.Println("No images found.")
		return nil
	}

	if batchOutputDir != "" {
		if err := os.MkdirAll(batchOutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	processor, closeEngine, err := newEngine()
	if err != nil {
		return err
	}
	defer closeEngine()

	settings := cliSettings()

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Analyzing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var mu sync.Mutex
	var errorCount, cacheHits int
	strategyCounts := make(map[string]int)

	sem := make(chan struct{}, max(batchConcurrency, 1))
	var wg sync.WaitGroup

	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			img, err := imaging.Open(path)
			if err != nil {
				mu.Lock()
				errorCount++
				mu.Unlock()
				return
			}

			result := processor.AnalyzeCrop(cmd.Context(), path, img, width, height, settings)

			mu.Lock()
			strategyCounts[result.BestCrop.Strategy]++
			if result.FromCache {
				cacheHits++
			}
			mu.Unlock()

			if batchOutputDir != "" {
				cropped := crop.ApplyCropAndResize(img, result.BestCrop, width, height)
				out := filepath.Join(batchOutputDir, filepath.Base(path))
				if err := imaging.Save(cropped, out); err != nil {
					mu.Lock()
					errorCount++
					mu.Unlock()
				}
			}
		}(path)
	}
	wg.Wait()
	fmt.Println()

	fmt.Printf("Images:     %d\n", len(paths))
	fmt.Printf("Cache hits: %d\n", cacheHits)
	fmt.Printf("Errors:     %d\n", errorCount)
	fmt.Println("Winning strategies:")
	for strategy, count := range strategyCounts {
		fmt.Printf("  %-16s %d\n", strategy, count)
	}
	return nil
}
