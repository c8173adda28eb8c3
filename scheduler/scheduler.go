// ABOUTME: Cron-driven trigger for recurring outreach runs
// ABOUTME: Fires one run per schedule tick and skips ticks while a run is still going
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/harperreed/warmer/models"
)

// Runner starts one outreach run.
type Runner interface {
	Run(ctx context.Context, trigger string, companyID int64) (models.RunSummary, error)
}

// Trigger is recorded on runs started by the schedule.
const Trigger = "cron"

type Config struct {
	// Spec accepts 5-field, 6-field (with seconds) and descriptor specs such as @daily.
	Spec      string
	Timezone  string
	CompanyID int64
}

type Scheduler struct {
	cfg    Config
	runner Runner
	log    zerolog.Logger
	c      *cron.Cron

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate reports whether spec parses.
func Validate(spec string) error {
	if _, err := parser.Parse(strings.TrimSpace(spec)); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

func New(cfg Config, r Runner, log zerolog.Logger) (*Scheduler, error) {
	if err := Validate(cfg.Spec); err != nil {
		return nil, err
	}
	loc := time.UTC
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		loc = l
	}

	s := &Scheduler{cfg: cfg, runner: r, log: log.With().Str("component", "scheduler").Logger()}
	s.c = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	if _, err := s.c.AddFunc(strings.TrimSpace(cfg.Spec), s.tick); err != nil {
		return nil, fmt.Errorf("failed to register schedule: %w", err)
	}
	return s, nil
}

// Start begins firing runs. Runs use ctx, so cancelling it stops new clients
// from starting in an in-flight run.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.c.Start()
	s.log.Info().Str("spec", s.cfg.Spec).Time("next", s.Next()).Msg("scheduler started")
}

// Stop halts the schedule, cancels an in-flight run and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.c.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Next returns the next scheduled fire time.
func (s *Scheduler) Next() time.Time {
	entries := s.c.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now())
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	summary, err := s.runner.Run(ctx, Trigger, s.cfg.CompanyID)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", summary.RunID).Msg("scheduled run failed")
		return
	}
	s.log.Info().
		Str("run_id", summary.RunID).
		Int("processed", summary.Processed).
		Int("successful", summary.Succeeded).
		Msg("scheduled run finished")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
