// ABOUTME: Shared wiring for CLI commands
// ABOUTME: Opens the database and builds the generator, sender and runner from config
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/warmer/cadence"
	"github.com/harperreed/warmer/config"
	"github.com/harperreed/warmer/db"
	"github.com/harperreed/warmer/delivery"
	"github.com/harperreed/warmer/generator"
	"github.com/harperreed/warmer/runner"
)

func openDB(opts *RootOptions) (*sql.DB, error) {
	database, err := db.OpenDatabase(opts.Config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	opts.Logger.Debug().Str("path", opts.Config.DBPath).Msg("database opened")
	return database, nil
}

// newSender builds the configured delivery provider behind the send-rate throttle.
func newSender(ctx context.Context, cfg *config.Config) (delivery.Sender, error) {
	var (
		sender delivery.Sender
		err    error
	)
	switch cfg.Provider {
	case config.ProviderResend:
		sender = delivery.NewResend(cfg.ResendAPIKey, "", nil)
	case config.ProviderGmail:
		oauthCfg := delivery.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret)
		sender, err = delivery.NewGmailFromToken(ctx, oauthCfg, cfg.GmailToken())
	case config.ProviderSES:
		sender, err = delivery.NewSESFromEnv(ctx, cfg.AWSRegion)
	default:
		err = fmt.Errorf("unknown delivery provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	return delivery.Throttle(sender, cfg.SendRate, 1), nil
}

func newGenerator(cfg *config.Config) generator.Generator {
	return generator.NewGroq(cfg.GroqAPIKey,
		generator.WithBaseURL(cfg.GroqBaseURL),
		generator.WithModel(cfg.GroqModel),
	)
}

// newRunner validates the config and wires a runner over database.
func newRunner(ctx context.Context, opts *RootOptions, database *sql.DB) (*runner.Runner, *cadence.Engine, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	engine, err := cfg.Engine()
	if err != nil {
		return nil, nil, err
	}
	sender, err := newSender(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	r := runner.New(db.NewStore(database), engine, newGenerator(cfg), sender, runner.OptionsFromConfig(cfg, opts.Logger))
	return r, engine, nil
}
