// ABOUTME: Preview command
// ABOUTME: Shows what the next run would do for each due client without sending
package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/warmer/db"
	"github.com/harperreed/warmer/runner"
)

type PreviewOptions struct {
	*RootOptions
	CompanyID int64
	At        string
	Verbose   bool
	JSON      bool
}

func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the decision for every due client without sending",
		Long: `Evaluate every due client and print the action a run would take, with
the decision trace behind it. Nothing is claimed, generated or sent.

Example:
  warmer preview --verbose
  warmer preview --at 2025-07-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.CompanyID, "company", 0, "company settings ID (default WARMER_COMPANY_ID)")
	cmd.Flags().StringVar(&opts.At, "at", "", "evaluate as of this date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "print the decision trace")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print decisions as JSON")

	return cmd
}

func runPreview(cmd *cobra.Command, opts *PreviewOptions) error {
	now := time.Now().UTC()
	if opts.At != "" {
		t, err := parseDate(opts.At)
		if err != nil {
			return err
		}
		now = t
	}

	engine, err := opts.Config.Engine()
	if err != nil {
		return err
	}
	database, err := openDB(opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	companyID := opts.CompanyID
	if companyID == 0 {
		companyID = opts.Config.CompanyID
	}

	decisions, err := runner.Preview(cmd.Context(), db.NewStore(database), engine, companyID, now, opts.Config.FallbackDays)
	if err != nil {
		return fmt.Errorf("failed to preview run: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(decisions)
	}

	if len(decisions) == 0 {
		_, _ = fmt.Fprintln(out, "No clients due.")
		return nil
	}
	due := 0
	for _, d := range decisions {
		if d.Action != nil {
			due++
		}
		_, _ = fmt.Fprintln(out, renderDecision(d, opts.Verbose))
	}
	_, _ = fmt.Fprintf(out, "\n%d of %d clients would be contacted as of %s\n", due, len(decisions), now.Format("2006-01-02"))
	return nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD or RFC3339", s)
	}
	return t.UTC(), nil
}
