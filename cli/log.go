// ABOUTME: Warming log CLI command
// ABOUTME: Lists audit entries newest first with optional filters
package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harperreed/warmer/db"
	"github.com/harperreed/warmer/models"
)

func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		filter   db.AuditFilter
		clientID string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the warming log",
		Example: `  warmer log
  warmer log --status failed --limit 20
  warmer log --run 01HZX3K6D2...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filter.Status != "" && filter.Status != models.OutcomeSent && filter.Status != models.OutcomeFailed {
				return fmt.Errorf("invalid --status %q (valid: sent, failed)", filter.Status)
			}
			if clientID != "" {
				id, err := uuid.Parse(clientID)
				if err != nil {
					return fmt.Errorf("invalid --client: %w", err)
				}
				filter.ClientID = id
			}
			if filter.CompanyID == 0 {
				filter.CompanyID = rootOpts.Config.CompanyID
			}

			database, err := openDB(rootOpts)
			if err != nil {
				return err
			}
			defer func() {
				_ = database.Close()
			}()

			entries, err := db.ListAuditEntries(cmd.Context(), database, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, "No log entries.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "WHEN\tSTATUS\tCLIENT\tCADENCE\tDETAIL\tTRIGGER")
			for _, e := range entries {
				detail := e.GeneratedSubject
				if e.Status == models.OutcomeFailed {
					detail = e.ErrorMessage
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04"), e.Status,
					orDash(e.ClientName), orDash(e.CadenceName), truncate(detail, 60), e.TriggeredBy)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&filter.CompanyID, "company", 0, "company settings ID (default WARMER_COMPANY_ID)")
	cmd.Flags().StringVar(&clientID, "client", "", "only this client's entries")
	cmd.Flags().StringVar(&filter.RunID, "run", "", "only entries from this run")
	cmd.Flags().StringVar(&filter.Status, "status", "", "sent or failed")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
