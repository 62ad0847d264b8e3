package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linguaops/payrecon/internal/matching"
	"github.com/linguaops/payrecon/internal/reconcile"
)

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "Inspect and extend the internal vendor registry",
}

var vendorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registry vendors",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup("vendors list")
		defer e.close()

		vendors, err := e.vendors.List(context.Background())
		if err != nil {
			e.logger.Fatal("listing vendors", zap.Error(err))
		}
		printJSON(cmd, vendors)
	},
}

var vendorsImportRosterCmd = &cobra.Command{
	Use:   "import-roster",
	Short: "Add platform team members the registry does not know yet",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		e := setup("vendors import-roster")
		defer e.close()
		logger := e.logger

		client, err := e.platformClient()
		if err != nil {
			logger.Fatal("loading platform token", zap.Error(err))
		}

		roster, err := client.TeamRoster(ctx)
		if err != nil {
			logger.Fatal("fetching platform roster", zap.Error(err))
		}

		vendors, err := e.vendors.List(ctx)
		if err != nil {
			logger.Fatal("listing vendors", zap.Error(err))
		}

		candidates := reconcile.RegistryCandidates(roster, matching.Vendors(vendors))
		logger.Info("registry candidates", zap.Int("roster", roster.Len()), zap.Int("count", len(candidates)))

		if len(candidates) == 0 || flagBool(cmd, "dry-run") {
			printJSON(cmd, candidates)
			return
		}

		if err := e.vendors.Save(ctx, candidates); err != nil {
			logger.Fatal("saving vendors", zap.Error(err))
		}
		printJSON(cmd, candidates)
	},
}

func init() {
	rootCmd.AddCommand(vendorsCmd)
	vendorsCmd.AddCommand(vendorsListCmd, vendorsImportRosterCmd)

	vendorsImportRosterCmd.Flags().Bool("dry-run", false, "only print the vendors that would be added")
}
