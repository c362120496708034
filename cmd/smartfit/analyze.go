package main

import (
	"fmt"
	"strconv"

	"github.com/dlevesque1980/dailywallpaper-sub000/pkg/crop"
	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
)

var analyzeOutput string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image> <width> <height>",
	Short: "Pick the best crop window for an image at a target size",
	Long: `Runs the enabled analysis strategies over the image and prints the
winning crop window. With --output the cropped and resized image is
written to the given path.`,
	Args: cobra.ExactArgs(3),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the cropped image to this path")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	width, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid width %q: %w", args[1], err)
	}
	height, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid height %q: %w", args[2], err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	processor, closeEngine, err := newEngine()
	if err != nil {
		return err
	}
	defer closeEngine()

	result := processor.AnalyzeCrop(cmd.Context(), path, img, width, height, cliSettings())

	best := result.BestCrop
	rect := best.ToRect(img.Bounds().Dx(), img.Bounds().Dy())
	fmt.Printf("Strategy:   %s\n", best.Strategy)
	fmt.Printf("Window:     %dx%d at (%d, %d)\n", rect.Dx(), rect.Dy(), rect.Min.X, rect.Min.Y)
	fmt.Printf("Fractions:  %.3fx%.3f at (%.3f, %.3f)\n", best.Width, best.Height, best.X, best.Y)
	fmt.Printf("Confidence: %.2f\n", best.Confidence)
	fmt.Printf("Duration:   %s\n", result.ProcessingTime)
	fmt.Printf("Cached:     %t\n", result.FromCache)

	if len(result.AllScores) > 0 {
		fmt.Println("\nStrategy scores:")
		for _, score := range result.AllScores {
			fmt.Printf("  %-16s %.3f\n", score.Strategy, score.Score)
		}
	}

	if analyzeOutput != "" {
		cropped := crop.ApplyCropAndResize(img, best, width, height)
		if err := imaging.Save(cropped, analyzeOutput); err != nil {
			return fmt.Errorf("failed to save output image: %w", err)
		}
		fmt.Printf("\nSaved %s\n", analyzeOutput)
	}
	return nil
}
