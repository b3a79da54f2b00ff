package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	identityDomain "github.com/sendflowr/pulse/internal/identity/domain"
)

var (
	resolveEmail   string
	resolvePhone   string
	resolveESP     string
	resolveKlaviyo string
	resolveShopify string
	resolveDevice  string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve raw identifiers to a universal id",
	Long: `Resolve a set of raw identifiers to a single universal id,
printing the match confidence and the audit trail of resolution steps.

Examples:
  pulse resolve --email a1b2c3...
  pulse resolve --klaviyo K123 --shopify 98765`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Resolver == nil {
			fmt.Println("Identity resolution requires a database connection.")
			fmt.Println("Start services with: docker-compose up -d")
			return nil
		}

		keys := identityDomain.Keys{
			Email:             resolveEmail,
			Phone:             resolvePhone,
			ESPUserID:         resolveESP,
			KlaviyoID:         resolveKlaviyo,
			ShopifyCustomerID: resolveShopify,
			DeviceSignature:   resolveDevice,
		}

		resolution, err := app.Resolver.Resolve(cmd.Context(), keys)
		if err != nil {
			return fmt.Errorf("failed to resolve: %w", err)
		}

		fmt.Println("Identity resolved")
		fmt.Printf("  Universal ID: %s\n", resolution.UniversalID)
		fmt.Printf("  Confidence:   %.2f\n", resolution.Confidence)
		if len(resolution.Steps) > 0 {
			fmt.Println("  Steps:")
			for _, step := range resolution.Steps {
				fmt.Printf("    %s\n", step)
			}
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveEmail, "email", "", "hashed email address")
	resolveCmd.Flags().StringVar(&resolvePhone, "phone", "", "hashed phone number")
	resolveCmd.Flags().StringVar(&resolveESP, "esp", "", "ESP user id")
	resolveCmd.Flags().StringVar(&resolveKlaviyo, "klaviyo", "", "Klaviyo profile id")
	resolveCmd.Flags().StringVar(&resolveShopify, "shopify", "", "Shopify customer id")
	resolveCmd.Flags().StringVar(&resolveDevice, "device", "", "device signature")

	rootCmd.AddCommand(resolveCmd)
}
