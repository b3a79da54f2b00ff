package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sendflowr/pulse/internal/timing/application/services"
	"github.com/sendflowr/pulse/internal/timing/domain"
)

var (
	decideAfter        string
	decideBefore       string
	decideChannel      string
	decideProvider     string
	decideCampaignType string
	decidePayloadBytes int
	decideJSON         bool
)

var decideCmd = &cobra.Command{
	Use:   "decide <universal-id>",
	Short: "Emit a timing decision for one recipient",
	Long: `Compute the optimal send minute for a recipient and print the
decision record, including the latency-compensated trigger time.

Window bounds accept RFC 3339 timestamps:

Examples:
  pulse decide pl_4f2a9c1e8b3d7a65
  pulse decide pl_4f2a9c1e8b3d7a65 --after 2026-09-01T00:00:00Z
  pulse decide pl_4f2a9c1e8b3d7a65 --channel email --provider sendgrid --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.DecisionService == nil {
			fmt.Println("Timing decisions require an event store connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		req, err := buildDecideRequest(args[0])
		if err != nil {
			return err
		}

		decision, err := app.DecisionService.Decide(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("failed to decide: %w", err)
		}

		if decideJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(decision)
		}

		printDecision(decision)
		return nil
	},
}

func buildDecideRequest(universalID string) (services.DecisionRequest, error) {
	req := services.DecisionRequest{
		UniversalID: universalID,
		Channel: services.ChannelContext{
			Channel:          decideChannel,
			Provider:         decideProvider,
			CampaignType:     decideCampaignType,
			PayloadSizeBytes: decidePayloadBytes,
		},
	}

	if decideAfter != "" {
		after, err := time.Parse(time.RFC3339, decideAfter)
		if err != nil {
			return req, fmt.Errorf("invalid --after: %w", err)
		}
		req.SendAfter = &after
	}
	if decideBefore != "" {
		before, err := time.Parse(time.RFC3339, decideBefore)
		if err != nil {
			return req, fmt.Errorf("invalid --before: %w", err)
		}
		req.SendBefore = &before
	}
	return req, nil
}

func printDecision(d *domain.TimingDecision) {
	fmt.Println("Timing decision")
	fmt.Printf("  ID:         %s\n", d.DecisionID)
	fmt.Printf("  Recipient:  %s\n", d.UniversalID)
	fmt.Printf("  Target:     slot %d (%s)\n", d.TargetMinuteUTC, domain.SlotLabel(d.TargetMinuteUTC))
	fmt.Printf("  Trigger:    %s\n", d.TriggerTimestampUTC.Format(time.RFC3339))
	fmt.Printf("  Latency:    %.0fs\n", d.LatencyEstimateSeconds)
	fmt.Printf("  Confidence: %.3f\n", d.ConfidenceScore)
	fmt.Printf("  Model:      %s\n", d.ModelVersion)
	if d.Debug.Suppressed {
		fmt.Println("  Suppressed: yes")
	}
	for _, w := range d.Debug.AppliedWeights {
		fmt.Printf("  Weight:     %s = %.2f\n", w.Signal, w.Weight)
	}
}

func init() {
	decideCmd.Flags().StringVar(&decideAfter, "after", "", "earliest allowed send time (RFC 3339)")
	decideCmd.Flags().StringVar(&decideBefore, "before", "", "latest allowed send time (RFC 3339)")
	decideCmd.Flags().StringVar(&decideChannel, "channel", "email", "delivery channel")
	decideCmd.Flags().StringVar(&decideProvider, "provider", "", "delivery provider")
	decideCmd.Flags().StringVar(&decideCampaignType, "campaign-type", "", "campaign type")
	decideCmd.Flags().IntVar(&decidePayloadBytes, "payload-bytes", 0, "estimated payload size in bytes")
	decideCmd.Flags().BoolVar(&decideJSON, "json", false, "print the raw decision record as JSON")

	rootCmd.AddCommand(decideCmd)
}
