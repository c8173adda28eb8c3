// ABOUTME: Serve command
// ABOUTME: Runs the HTTP trigger and the optional cron schedule until interrupted
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/warmer/scheduler"
	"github.com/harperreed/warmer/web"
)

type ServeOptions struct {
	*RootOptions
	Addr     string
	Schedule string
	NoHTTP   bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger and run on a schedule",
		Long: `Start the HTTP trigger (POST /run, GET /log, GET /healthz) and, when a
schedule is given, fire a run on every tick.

Example:
  warmer serve --schedule "0 9 * * *"
  warmer serve --addr :9000
  warmer serve --no-http --schedule @daily`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default WARMER_HTTP_ADDR)")
	cmd.Flags().StringVar(&opts.Schedule, "schedule", "", "cron schedule for recurring runs (default WARMER_SCHEDULE)")
	cmd.Flags().BoolVar(&opts.NoHTTP, "no-http", false, "do not start the HTTP trigger")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg := opts.Config
	if opts.Addr != "" {
		cfg.HTTPAddr = opts.Addr
	}
	if opts.Schedule != "" {
		cfg.Schedule = opts.Schedule
	}
	if opts.NoHTTP && cfg.Schedule == "" {
		return errors.New("--no-http needs a schedule")
	}

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

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Schedule != "" {
		sched, err := scheduler.New(scheduler.Config{
			Spec:      cfg.Schedule,
			Timezone:  cfg.ScheduleTimezone,
			CompanyID: cfg.CompanyID,
		}, r, opts.Logger)
		if err != nil {
			return err
		}
		sched.Start(gctx)
		g.Go(func() error {
			<-gctx.Done()
			sched.Stop()
			return nil
		})
	}

	if !opts.NoHTTP {
		srv := web.NewServer(r, database, web.Options{
			Token:            cfg.RunToken,
			DefaultCompanyID: cfg.CompanyID,
			Logger:           opts.Logger,
		})
		g.Go(func() error {
			return srv.Start(gctx, cfg.HTTPAddr)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
