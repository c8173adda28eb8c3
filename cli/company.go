// ABOUTME: Company settings CLI commands
// ABOUTME: Creates or updates the sender identity a run is scoped to
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harperreed/warmer/db"
	"github.com/harperreed/warmer/models"
)

func NewCompanyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Manage company settings",
	}
	cmd.AddCommand(newCompanySetCommand(rootOpts))
	cmd.AddCommand(newCompanyListCommand(rootOpts))
	return cmd
}

func newCompanySetCommand(rootOpts *RootOptions) *cobra.Command {
	settings := &models.CompanySettings{}
	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Create or update company settings",
		Example: `  warmer company set --name "Acme Partners" --from-email hello@acme.com --from-name "Acme"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if settings.CompanyName == "" || settings.FromEmail == "" {
				return fmt.Errorf("--name and --from-email are required")
			}
			if settings.ID == 0 {
				settings.ID = rootOpts.Config.CompanyID
			}

			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = database.Close()
			}()

			if err := db.UpsertCompanySettings(cmd.Context(), database, settings); err != nil {
				return fmt.Errorf("failed to save company settings: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Company %d saved: %s (from %s)\n", settings.ID, settings.CompanyName, settings.FromAddress())
			return nil
		},
	}
	cmd.Flags().Int64Var(&settings.ID, "id", 0, "company settings ID (default WARMER_COMPANY_ID)")
	cmd.Flags().StringVar(&settings.CompanyName, "name", "", "company name (required)")
	cmd.Flags().StringVar(&settings.FromEmail, "from-email", "", "sender address (required)")
	cmd.Flags().StringVar(&settings.FromName, "from-name", "", "sender display name")
	return cmd
}

func newCompanyListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List company settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = database.Close()
			}()

			companies, err := db.ListCompanySettings(cmd.Context(), database)
			if err != nil {
				return err
			}
			if len(companies) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No companies configured.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tFROM")
			for _, c := range companies {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.CompanyName, c.FromAddress())
			}
			return w.Flush()
		},
	}
}
