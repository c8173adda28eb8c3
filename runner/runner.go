// ABOUTME: Run orchestrator for one outreach cycle
// ABOUTME: Decides, claims, generates, delivers, audits and advances each due client
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/warmer/cadence"
	"github.com/harperreed/warmer/config"
	"github.com/harperreed/warmer/db"
	"github.com/harperreed/warmer/delivery"
	"github.com/harperreed/warmer/generator"
	"github.com/harperreed/warmer/models"
)

// ErrAuditWrite marks a warming_log write that failed after the outcome was known.
var ErrAuditWrite = errors.New("audit write error")

// DefaultTrigger labels runs without an explicit trigger.
const DefaultTrigger = "system"

// Store is the persistence a run needs.
type Store interface {
	CompanySettings(ctx context.Context, companyID int64) (*models.CompanySettings, error)
	DueClients(ctx context.Context, companyID int64, now time.Time) ([]models.Client, error)
	// Claim leases the client as of the given snapshot; it fails if the record moved on since.
	Claim(ctx context.Context, snapshot *models.Client, token string, now, until time.Time) (bool, error)
	Release(ctx context.Context, id uuid.UUID, token string, original *time.Time) error
	RecordDelivery(ctx context.Context, id uuid.UUID, token string, update db.SendUpdate) error
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
}

type Options struct {
	Workers          int
	ClaimTTL         time.Duration
	GenerateTimeout  time.Duration
	DeliverTimeout   time.Duration
	GenerateAttempts int
	DeliverAttempts  int
	// RetryBackoff is the pause between attempts. Zero retries immediately.
	RetryBackoff time.Duration
	FallbackDays int
	// PersistTimeout bounds bookkeeping writes, which run even after cancellation.
	PersistTimeout time.Duration
	Clock          func() time.Time
	Logger         zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = 4
	}
	if o.ClaimTTL <= 0 {
		o.ClaimTTL = 15 * time.Minute
	}
	if o.GenerateTimeout <= 0 {
		o.GenerateTimeout = 60 * time.Second
	}
	if o.DeliverTimeout <= 0 {
		o.DeliverTimeout = 30 * time.Second
	}
	if o.GenerateAttempts < 1 {
		o.GenerateAttempts = 1
	}
	if o.DeliverAttempts < 1 {
		o.DeliverAttempts = 1
	}
	if o.FallbackDays < 1 {
		o.FallbackDays = 180
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 10 * time.Second
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// OptionsFromConfig maps runtime configuration onto run options.
func OptionsFromConfig(cfg *config.Config, logger zerolog.Logger) Options {
	return Options{
		Workers:          cfg.Workers,
		ClaimTTL:         cfg.ClaimTTL,
		GenerateTimeout:  cfg.GenerateTimeout,
		DeliverTimeout:   cfg.DeliverTimeout,
		GenerateAttempts: cfg.GenerateAttempts,
		DeliverAttempts:  cfg.DeliverAttempts,
		RetryBackoff:     cfg.RetryBackoff,
		PersistTimeout:   cfg.PersistTimeout,
		FallbackDays:     cfg.FallbackDays,
		Logger:           logger,
	}
}

// Runner executes outreach runs. It is safe for concurrent use; overlapping
// runs coordinate through per-client claims in the store.
type Runner struct {
	store     Store
	engine    *cadence.Engine
	generator generator.Generator
	sender    delivery.Sender
	opts      Options
}

func New(store Store, engine *cadence.Engine, gen generator.Generator, sender delivery.Sender, opts Options) *Runner {
	return &Runner{
		store:     store,
		engine:    engine,
		generator: gen,
		sender:    sender,
		opts:      opts.withDefaults(),
	}
}

type counters struct {
	processed     atomic.Int64
	succeeded     atomic.Int64
	skipped       atomic.Int64
	failed        atomic.Int64
	contended     atomic.Int64
	auditFailures atomic.Int64
}

type run struct {
	id       string
	trigger  string
	settings *models.CompanySettings
	log      zerolog.Logger
	counts   counters
}

// Run processes every due client of one company. Per-client generation and
// delivery failures are recorded and never returned. Configuration and data
// access failures are returned together with the partial summary, as is the
// context error when ctx is cancelled mid-run.
func (r *Runner) Run(ctx context.Context, trigger string, companyID int64) (models.RunSummary, error) {
	if trigger == "" {
		trigger = DefaultTrigger
	}
	now := r.opts.Clock()
	state := &run{
		id:      ulid.Make().String(),
		trigger: trigger,
	}
	state.log = r.opts.Logger.With().
		Str("run_id", state.id).
		Str("triggered_by", trigger).
		Int64("company_id", companyID).
		Logger()

	summary := models.RunSummary{
		RunID:     state.id,
		Trigger:   trigger,
		CompanyID: companyID,
		StartedAt: now,
	}

	settings, err := r.store.CompanySettings(ctx, companyID)
	if err != nil {
		return r.finish(summary, state), err
	}
	if settings == nil {
		return r.finish(summary, state), fmt.Errorf("%w: company settings not found for ID: %d", config.ErrConfiguration, companyID)
	}
	state.settings = settings
	summary.Company = settings.CompanyName

	clients, err := r.store.DueClients(ctx, companyID, now)
	if err != nil {
		return r.finish(summary, state), err
	}
	summary.Evaluated = len(clients)
	state.log.Info().
		Str("company", settings.CompanyName).
		Int("evaluated", len(clients)).
		Msg("run started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range clients {
		if gctx.Err() != nil {
			break
		}
		client := clients[i]
		g.Go(func() error {
			return r.process(gctx, state, &client)
		})
	}
	err = g.Wait()

	summary = r.finish(summary, state)
	if err != nil {
		state.log.Error().Err(err).Msg("run aborted")
		return summary, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		summary.Cancelled = true
		state.log.Warn().Err(ctxErr).Msg("run cancelled")
		return summary, ctxErr
	}

	state.log.Info().
		Int("processed", summary.Processed).
		Int("successful", summary.Succeeded).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("contended", summary.Contended).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("run complete")
	return summary, nil
}

func (r *Runner) finish(summary models.RunSummary, state *run) models.RunSummary {
	summary.Processed = int(state.counts.processed.Load())
	summary.Succeeded = int(state.counts.succeeded.Load())
	summary.Skipped = int(state.counts.skipped.Load())
	summary.Failed = int(state.counts.failed.Load())
	summary.Contended = int(state.counts.contended.Load())
	summary.AuditFailures = int(state.counts.auditFailures.Load())
	summary.FinishedAt = r.opts.Clock()
	return summary
}

func (r *Runner) process(ctx context.Context, state *run, client *models.Client) error {
	if ctx.Err() != nil {
		return nil
	}
	log := state.log.With().
		Str("client_id", client.ID.String()).
		Str("client", client.Name).
		Logger()

	now := r.opts.Clock()
	action, trace := r.engine.Trace(client, now)
	if log.GetLevel() <= zerolog.DebugLevel {
		for _, line := range trace {
			log.Debug().Msg(line)
		}
	}
	if action == nil {
		state.counts.skipped.Add(1)
		log.Debug().Msg("no action needed")
		return nil
	}

	token := uuid.NewString()
	claimed, err := r.store.Claim(ctx, client, token, now, now.Add(r.opts.ClaimTTL))
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if !claimed {
		state.counts.contended.Add(1)
		log.Info().Msg("client claimed by another run")
		return nil
	}
	state.counts.processed.Add(1)

	log = log.With().
		Str("cadence", action.EffectiveCadence(client)).
		Str("reason", action.Reason).
		Logger()

	content, err := retry(ctx, r.opts.GenerateAttempts, r.opts.GenerateTimeout, r.opts.RetryBackoff,
		func(ctx context.Context) (models.Content, error) {
			return r.generator.Generate(ctx, generator.Request{
				Company: *state.settings,
				Client:  *client,
				Action:  *action,
			})
		})
	if err != nil {
		return r.fail(ctx, state, client, action, token, wrapAs(generator.ErrGeneration, err), log)
	}

	deliveryID, err := retry(ctx, r.opts.DeliverAttempts, r.opts.DeliverTimeout, r.opts.RetryBackoff,
		func(ctx context.Context) (string, error) {
			return r.sender.Send(ctx, delivery.Message{
				From:    state.settings.FromAddress(),
				To:      client.Email,
				Subject: content.Subject,
				Body:    content.Body,
			})
		})
	if err != nil {
		return r.fail(ctx, state, client, action, token, wrapAs(delivery.ErrDelivery, err), log)
	}

	// The message is out; bookkeeping must land even if the run is cancelled now.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.PersistTimeout)
	defer cancel()

	entry := r.auditEntry(state, client, action, models.OutcomeSent)
	entry.GeneratedSubject = content.Subject
	entry.GeneratedBody = content.Body
	entry.DeliveryID = deliveryID
	r.appendAudit(persistCtx, state, entry, log)

	sentAt := r.opts.Clock()
	update := Advance(r.engine, client, action, sentAt, r.opts.FallbackDays)
	if err := r.store.RecordDelivery(persistCtx, client.ID, token, update); err != nil {
		state.counts.failed.Add(1)
		log.Error().Err(err).Str("delivery_id", deliveryID).Msg("sent but failed to update client")
		return fmt.Errorf("update client %s after send: %w", client.ID, err)
	}

	state.counts.succeeded.Add(1)
	log.Info().
		Str("delivery_id", deliveryID).
		Time("next_contact_date", update.NextContactDate).
		Msg("email sent")
	return nil
}

func (r *Runner) fail(ctx context.Context, state *run, client *models.Client, action *models.Action, token string, cause error, log zerolog.Logger) error {
	state.counts.failed.Add(1)
	log.Warn().Err(cause).Msg("client processing failed")

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.PersistTimeout)
	defer cancel()

	entry := r.auditEntry(state, client, action, models.OutcomeFailed)
	entry.ErrorMessage = cause.Error()
	r.appendAudit(persistCtx, state, entry, log)

	// A release failure leaves the lease to expire on its own after ClaimTTL.
	if err := r.store.Release(persistCtx, client.ID, token, client.NextContactDate); err != nil {
		log.Error().Err(err).Msg("failed to release claim")
	}
	return nil
}

func (r *Runner) auditEntry(state *run, client *models.Client, action *models.Action, outcome string) *models.AuditEntry {
	return &models.AuditEntry{
		RunID:             state.id,
		ClientID:          client.ID,
		CompanyID:         client.CompanyID,
		Status:            outcome,
		CadenceName:       action.EffectiveCadence(client),
		CadenceStepPrompt: action.Step.Intent,
		Reason:            action.Reason,
		TriggeredBy:       state.trigger,
		CreatedAt:         r.opts.Clock(),
	}
}

func (r *Runner) appendAudit(ctx context.Context, state *run, entry *models.AuditEntry, log zerolog.Logger) {
	if err := r.store.AppendAudit(ctx, entry); err != nil {
		state.counts.auditFailures.Add(1)
		log.Error().Err(fmt.Errorf("%w: %w", ErrAuditWrite, err)).Str("status", entry.Status).Msg("failed to write warming log")
	}
}

// Advance computes the schedule a client moves to after a send at sentAt: the
// delay of the following step in the effective cadence, else fallbackDays.
func Advance(engine *cadence.Engine, client *models.Client, action *models.Action, sentAt time.Time, fallbackDays int) db.SendUpdate {
	name := action.EffectiveCadence(client)
	next := *client
	next.TotalMessagesCount++
	next.CurrentCadenceName = &name

	delay, ok := engine.NextDelay(&next)
	if !ok {
		delay = fallbackDays
	}
	return db.SendUpdate{
		ContactedAt:     sentAt,
		NextContactDate: sentAt.AddDate(0, 0, delay),
		CadenceName:     name,
	}
}

func wrapAs(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
