package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/warmer/cadence"
)

func validConfig() *Config {
	return &Config{
		GroqAPIKey:       "gsk_test",
		Provider:         ProviderResend,
		ResendAPIKey:     "re_test",
		Workers:          4,
		ClaimTTL:         15 * time.Minute,
		GenerateTimeout:  time.Minute,
		DeliverTimeout:   30 * time.Second,
		GenerateAttempts: 1,
		DeliverAttempts:  1,
		RetryBackoff:     2 * time.Second,
		PersistTimeout:   10 * time.Second,
		FallbackDays:     180,
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultDBPath(), cfg.DBPath)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ClaimTTL)
	assert.Equal(t, 180, cfg.FallbackDays)
	assert.Equal(t, int64(1), cfg.CompanyID)
	assert.Equal(t, ProviderResend, cfg.Provider)
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff)
	assert.Equal(t, 10*time.Second, cfg.PersistTimeout)

	cfg.GroqAPIKey, cfg.ResendAPIKey = "gsk_test", "re_test"
	assert.NoError(t, cfg.Validate(), "default timeouts fit inside the claim lease")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warmer.env")
	require.NoError(t, os.WriteFile(path, []byte("WARMER_CADENCE_FILE=/etc/warmer/cadences.yaml\nWARMER_DELIVERY=SES\n"), 0600))
	t.Cleanup(func() {
		_ = os.Unsetenv("WARMER_CADENCE_FILE")
		_ = os.Unsetenv("WARMER_DELIVERY")
	})
	t.Setenv("WARMER_CLAIM_TTL", "5m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/etc/warmer/cadences.yaml", cfg.CadenceFile)
	assert.Equal(t, ProviderSES, cfg.Provider)
	assert.Equal(t, 5*time.Minute, cfg.ClaimTTL)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, ErrConfiguration)

	t.Setenv("WARMER_WORKERS", "many")
	_, err = Load("")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing groq key", func(c *Config) { c.GroqAPIKey = "" }},
		{"missing resend key", func(c *Config) { c.ResendAPIKey = "" }},
		{"gmail without client", func(c *Config) { c.Provider = ProviderGmail }},
		{"unknown provider", func(c *Config) { c.Provider = "carrier-pigeon" }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"no attempts", func(c *Config) { c.DeliverAttempts = 0 }},
		{"zero ttl", func(c *Config) { c.ClaimTTL = 0 }},
		{"zero fallback", func(c *Config) { c.FallbackDays = 0 }},
		{"bad policy", func(c *Config) { c.Exhaustion = "forever" }},
		{"negative backoff", func(c *Config) { c.RetryBackoff = -time.Second }},
		{"lease shorter than retries", func(c *Config) {
			c.ClaimTTL = 5 * time.Minute
			c.GenerateAttempts = 5 // 5 * (60s + 2s) + 30s + 2s + 10s = 352s
		}},
		{"lease equal to budget", func(c *Config) { c.ClaimTTL = c.RecordBudget() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
		})
	}

	ses := validConfig()
	ses.Provider = ProviderSES
	ses.ResendAPIKey = ""
	assert.NoError(t, ses.Validate())
}

func TestRecordBudget(t *testing.T) {
	cfg := validConfig()
	// 1 * (60s + 2s) + 1 * (30s + 2s) + 10s
	assert.Equal(t, 104*time.Second, cfg.RecordBudget())

	cfg.GenerateAttempts = 3
	cfg.DeliverAttempts = 2
	cfg.RetryBackoff = 0
	assert.Equal(t, 3*time.Minute+time.Minute+10*time.Second, cfg.RecordBudget())
}

func TestEngineFromConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Exhaustion = "hold"
	policy, err := cfg.ExhaustionPolicy()
	require.NoError(t, err)
	assert.Equal(t, cadence.HoldAfterReEngagement, policy)

	engine, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, 5, len(engine.Catalog().Names()))

	cfg.CadenceFile = filepath.Join(t.TempDir(), "absent.yaml")
	_, err = cfg.Engine()
	assert.ErrorIs(t, err, ErrConfiguration)
}
