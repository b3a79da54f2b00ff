package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sendflowr/pulse/internal/timing/domain"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Inspect and recompute engagement features",
}

var featuresShowCmd = &cobra.Command{
	Use:   "show <universal-id>",
	Short: "Show the engagement features for a recipient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.FeatureService == nil {
			fmt.Println("Features require an event store connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		features, err := app.FeatureService.GetOrCompute(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load features: %w", err)
		}

		printFeatures(features)
		return nil
	},
}

var featuresComputeAll bool

var featuresComputeCmd = &cobra.Command{
	Use:   "compute [universal-id]",
	Short: "Recompute engagement features",
	Long: `Recompute the weekly engagement curve from raw click history,
bypassing the cache.

With --all, recompute every identity active in the lookback horizon.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.FeatureService == nil {
			fmt.Println("Features require an event store connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		if featuresComputeAll {
			computed, err := app.FeatureService.ComputeAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to recompute features: %w", err)
			}
			fmt.Printf("Recomputed features for %d identities\n", computed)
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("provide a universal id or pass --all")
		}

		features, err := app.FeatureService.Compute(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to recompute features: %w", err)
		}

		printFeatures(features)
		return nil
	},
}

func printFeatures(f *domain.FeatureSet) {
	fmt.Println("Engagement features")
	fmt.Printf("  Recipient:   %s\n", f.UniversalID)
	fmt.Printf("  Version:     %s\n", f.Version)
	fmt.Printf("  Computed:    %s\n", f.ComputedAt.Format(time.RFC3339))
	fmt.Printf("  Confidence:  %.3f\n", f.CurveConfidence)
	fmt.Printf("  Sharpness:   %.3f\n", f.Curve.Sharpness())
	peak := f.Curve.PeakSlot()
	fmt.Printf("  Peak:        slot %d (%s)\n", peak, domain.SlotLabel(peak))
	fmt.Printf("  Clicks 30d:  %d\n", f.Counts.ClickCount30d)

	if len(f.PeakWindows) > 0 {
		fmt.Println("  Peak windows:")
		for _, w := range f.PeakWindows {
			fmt.Printf("    slot %5d (%s)  mean p=%.6f\n",
				w.StartSlot, domain.SlotLabel(w.StartSlot), w.MeanProbability)
		}
	}
}

func init() {
	featuresComputeCmd.Flags().BoolVar(&featuresComputeAll, "all", false, "recompute every active identity")

	featuresCmd.AddCommand(featuresShowCmd)
	featuresCmd.AddCommand(featuresComputeCmd)
	rootCmd.AddCommand(featuresCmd)
}
