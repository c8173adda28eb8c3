// ABOUTME: Client CLI commands
// ABOUTME: Adds, lists, pauses and resumes tracked outreach clients
package cli

import (
	"fmt"
	"net/mail"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/warmer/cadence"
	"github.com/harperreed/warmer/db"
	"github.com/harperreed/warmer/models"
)

func NewClientsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Manage tracked clients",
	}
	cmd.AddCommand(newClientsAddCommand(rootOpts))
	cmd.AddCommand(newClientsListCommand(rootOpts))
	cmd.AddCommand(newClientStatusCommand(rootOpts, "pause", models.StatusPaused))
	cmd.AddCommand(newClientStatusCommand(rootOpts, "resume", models.StatusActive))
	cmd.AddCommand(newClientStatusCommand(rootOpts, "deactivate", models.StatusInactive))
	return cmd
}

type clientAddOptions struct {
	name, email, linkedin string
	cadence               string
	expires               string
	companyID             int64
}

func newClientsAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &clientAddOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a client",
		Example: `  warmer clients add --name "Dana Reyes" --email dana@example.com
  warmer clients add --name Lee --email lee@example.com --cadence LeadEngagement
  warmer clients add --name Kim --email kim@example.com --expires 2025-09-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.name == "" || opts.email == "" {
				return fmt.Errorf("--name and --email are required")
			}
			if addr, err := mail.ParseAddress(opts.email); err != nil || addr.Address != opts.email {
				return fmt.Errorf("invalid --email %q: want a bare address like dana@example.com", opts.email)
			}

			client := &models.Client{
				CompanyID: opts.companyID,
				Name:      opts.name,
				Email:     opts.email,
				LinkedIn:  opts.linkedin,
			}
			if client.CompanyID == 0 {
				client.CompanyID = rootOpts.Config.CompanyID
			}
			if opts.cadence != "" {
				name, ok := cadence.ParseName(opts.cadence)
				if !ok {
					return fmt.Errorf("unknown cadence %q (valid: %v)", opts.cadence, cadence.Default().Names())
				}
				client.CurrentCadenceName = name.Ptr()
			}
			if opts.expires != "" {
				t, err := parseDate(opts.expires)
				if err != nil {
					return err
				}
				client.ExpirationDate = &t
			}

			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = database.Close()
			}()

			settings, err := db.GetCompanySettings(cmd.Context(), database, client.CompanyID)
			if err != nil {
				return err
			}
			if settings == nil {
				return fmt.Errorf("company %d not found; run 'warmer company set' first", client.CompanyID)
			}

			if err := db.CreateClient(cmd.Context(), database, client); err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "✓ Client created: %s (ID: %s)\n", client.Name, client.ID)
			_, _ = fmt.Fprintf(out, "  Company: %s\n", settings.CompanyName)
			if client.CurrentCadenceName != nil {
				_, _ = fmt.Fprintf(out, "  Cadence: %s\n", *client.CurrentCadenceName)
			}
			if client.ExpirationDate != nil {
				_, _ = fmt.Fprintf(out, "  Expires: %s\n", client.ExpirationDate.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "client name (required)")
	cmd.Flags().StringVar(&opts.email, "email", "", "client email (required)")
	cmd.Flags().StringVar(&opts.linkedin, "linkedin", "", "LinkedIn profile URL")
	cmd.Flags().StringVar(&opts.cadence, "cadence", "", "start the client on this cadence")
	cmd.Flags().StringVar(&opts.expires, "expires", "", "partnership expiration date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&opts.companyID, "company", 0, "company settings ID (default WARMER_COMPANY_ID)")
	return cmd
}

func newClientsListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		companyID int64
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients and their schedule state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if companyID == 0 {
				companyID = rootOpts.Config.CompanyID
			}
			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = database.Close()
			}()

			clients, err := db.ListClients(cmd.Context(), database, companyID, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(clients) == 0 {
				_, _ = fmt.Fprintln(out, "No clients found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tSTATUS\tCADENCE\tSENT\tLAST CONTACT\tNEXT CONTACT")
			for _, c := range clients {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					c.ID.String()[:8], c.Name, c.Email, c.Status,
					orDash(c.CadenceName()), c.TotalMessagesCount,
					dateOrDash(c.LastContactDate), dateOrDash(c.NextContactDate))
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&companyID, "company", 0, "company settings ID (default WARMER_COMPANY_ID)")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum results")
	return cmd
}

func newClientStatusCommand(rootOpts *RootOptions, use, status string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <client-id>",
		Short: fmt.Sprintf("Set a client's status to %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid client ID: %w", err)
			}
			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = database.Close()
			}()

			if err := db.SetClientStatus(cmd.Context(), database, id, status); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Client %s is now %s\n", id, status)
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
