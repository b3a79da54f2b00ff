package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sendflowr/pulse/internal/simulation"
)

var (
	seedIdentities int
	seedWeeks      int
	seedSends      int
	seedSeed       int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load simulated engagement history into the event store",
	Long: `Generate a persona-based population with realistic click
patterns and load its engagement history into the event store.

The generator is deterministic for a given --seed: repeated runs
produce the same population and engagement pattern, anchored at the
current time.

Examples:
  pulse seed
  pulse seed --identities 200 --weeks 12 --seed 7`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.EventWriter == nil {
			fmt.Println("Seeding requires an event store connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		generator := simulation.NewGenerator(simulation.GeneratorConfig{
			Identities:   seedIdentities,
			Weeks:        seedWeeks,
			SendsPerWeek: seedSends,
			Seed:         seedSeed,
			End:          time.Now().UTC(),
		})
		identities, events := generator.Generate()

		ctx := cmd.Context()
		if err := app.EventWriter.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare event store: %w", err)
		}
		written, err := app.EventWriter.WriteEvents(ctx, events)
		if err != nil {
			return fmt.Errorf("failed to load events: %w", err)
		}

		fmt.Println("Seed complete")
		fmt.Printf("  Identities: %d\n", len(identities))
		fmt.Printf("  Events:     %d\n", written)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedIdentities, "identities", 50, "number of identities to generate")
	seedCmd.Flags().IntVar(&seedWeeks, "weeks", 8, "weeks of history per identity")
	seedCmd.Flags().IntVar(&seedSends, "sends-per-week", 10, "campaign sends per week per identity")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", 1, "random seed")

	rootCmd.AddCommand(seedCmd)
}
