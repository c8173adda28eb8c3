// ABOUTME: Run command
// ABOUTME: Executes one outreach run for a company and prints the summary
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harperreed/warmer/runner"
)

type RunOptions struct {
	*RootOptions
	Trigger   string
	CompanyID int64
	JSON      bool
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run outreach for every due client once",
		Long: `Evaluate every active client of the company, generate and send the due
emails, advance each client's schedule and append the warming log.

Interrupting the run stops new clients from starting; clients already
sending are finished and recorded.

Example:
  warmer run
  warmer run --trigger manual --company 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Trigger, "trigger", runner.DefaultTrigger, "who or what triggered the run")
	cmd.Flags().Int64Var(&opts.CompanyID, "company", 0, "company settings ID (default WARMER_COMPANY_ID)")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the summary as JSON")

	return cmd
}

func runOnce(cmd *cobra.Command, opts *RunOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := openDB(opts.RootOptions)
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	r, _, err := newRunner(ctx, opts.RootOptions, database)
	if err != nil {
		return err
	}

	companyID := opts.CompanyID
	if companyID == 0 {
		companyID = opts.Config.CompanyID
	}

	summary, err := r.Run(ctx, opts.Trigger, companyID)
	if opts.JSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		_ = enc.Encode(summary)
	} else {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary))
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}
