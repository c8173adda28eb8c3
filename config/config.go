// ABOUTME: Runtime configuration loaded from the environment and .env files
// ABOUTME: Validates credentials and limits up front as ConfigurationErrors
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/harperreed/warmer/cadence"
)

// ErrConfiguration marks missing or invalid configuration.
var ErrConfiguration = errors.New("configuration error")

// Delivery providers.
const (
	ProviderResend = "resend"
	ProviderGmail  = "gmail"
	ProviderSES    = "ses"
)

type Config struct {
	DBPath      string `env:"WARMER_DB_PATH"`
	LogLevel    string `env:"WARMER_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"WARMER_LOG_FORMAT" envDefault:"auto"`
	CadenceFile string `env:"WARMER_CADENCE_FILE"`
	// restart or hold
	Exhaustion string `env:"WARMER_EXHAUSTION_POLICY" envDefault:"restart"`

	GroqAPIKey  string `env:"GROQ_API_KEY"`
	GroqModel   string `env:"GROQ_MODEL" envDefault:"llama-3.3-70b-versatile"`
	GroqBaseURL string `env:"GROQ_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`

	Provider           string  `env:"WARMER_DELIVERY" envDefault:"resend"`
	ResendAPIKey       string  `env:"RESEND_API_KEY"`
	GmailTokenPath     string  `env:"WARMER_GMAIL_TOKEN"`
	GoogleClientID     string  `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string  `env:"GOOGLE_CLIENT_SECRET"`
	AWSRegion          string  `env:"AWS_REGION"`
	SendRate           float64 `env:"WARMER_SEND_RATE" envDefault:"2"`

	CompanyID        int64         `env:"WARMER_COMPANY_ID" envDefault:"1"`
	Workers          int           `env:"WARMER_WORKERS" envDefault:"4"`
	ClaimTTL         time.Duration `env:"WARMER_CLAIM_TTL" envDefault:"15m"`
	GenerateTimeout  time.Duration `env:"WARMER_GENERATE_TIMEOUT" envDefault:"60s"`
	DeliverTimeout   time.Duration `env:"WARMER_DELIVER_TIMEOUT" envDefault:"30s"`
	GenerateAttempts int           `env:"WARMER_GENERATE_ATTEMPTS" envDefault:"1"`
	DeliverAttempts  int           `env:"WARMER_DELIVER_ATTEMPTS" envDefault:"1"`
	RetryBackoff     time.Duration `env:"WARMER_RETRY_BACKOFF" envDefault:"2s"`
	PersistTimeout   time.Duration `env:"WARMER_PERSIST_TIMEOUT" envDefault:"10s"`
	FallbackDays     int           `env:"WARMER_FALLBACK_DAYS" envDefault:"180"`

	HTTPAddr         string `env:"WARMER_HTTP_ADDR" envDefault:":8080"`
	RunToken         string `env:"WARMER_RUN_TOKEN"`
	Schedule         string `env:"WARMER_SCHEDULE"`
	ScheduleTimezone string `env:"WARMER_SCHEDULE_TZ" envDefault:"UTC"`
}

// DefaultDBPath returns the XDG-compliant database location.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, "warmer", "warmer.db")
}

// Load reads envFile (or ./.env when empty and present) and then the process
// environment. Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("%w: load %s: %v", ErrConfiguration, envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("%w: load .env: %v", ErrConfiguration, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath()
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	return cfg, nil
}

// Validate checks what a sending run needs. Preview and read-only commands skip it.
func (c *Config) Validate() error {
	var problems []string

	if c.GroqAPIKey == "" {
		problems = append(problems, "GROQ_API_KEY is required")
	}
	switch c.Provider {
	case ProviderResend:
		if c.ResendAPIKey == "" {
			problems = append(problems, "RESEND_API_KEY is required for the resend provider")
		}
	case ProviderGmail:
		if c.GoogleClientID == "" || c.GoogleClientSecret == "" {
			problems = append(problems, "GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required for the gmail provider")
		}
	case ProviderSES:
	default:
		problems = append(problems, fmt.Sprintf("unknown delivery provider %q", c.Provider))
	}

	if c.Workers < 1 {
		problems = append(problems, "WARMER_WORKERS must be at least 1")
	}
	if c.GenerateAttempts < 1 || c.DeliverAttempts < 1 {
		problems = append(problems, "attempt counts must be at least 1")
	}
	if c.ClaimTTL <= 0 || c.GenerateTimeout <= 0 || c.DeliverTimeout <= 0 || c.PersistTimeout <= 0 {
		problems = append(problems, "claim TTL and timeouts must be positive")
	} else if c.RetryBackoff < 0 {
		problems = append(problems, "WARMER_RETRY_BACKOFF must not be negative")
	} else if budget := c.RecordBudget(); c.ClaimTTL <= budget {
		problems = append(problems, fmt.Sprintf("WARMER_CLAIM_TTL (%s) must exceed the worst case for one client (%s)", c.ClaimTTL, budget))
	}
	if c.FallbackDays < 1 {
		problems = append(problems, "WARMER_FALLBACK_DAYS must be at least 1")
	}
	if _, err := c.ExhaustionPolicy(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// RecordBudget is the longest one client can stay claimed: every generate and
// deliver attempt timing out with a backoff after each, plus the bookkeeping write.
func (c *Config) RecordBudget() time.Duration {
	generate := time.Duration(c.GenerateAttempts) * (c.GenerateTimeout + c.RetryBackoff)
	deliver := time.Duration(c.DeliverAttempts) * (c.DeliverTimeout + c.RetryBackoff)
	return generate + deliver + c.PersistTimeout
}

// ExhaustionPolicy parses the configured ReEngagement exhaustion policy.
func (c *Config) ExhaustionPolicy() (cadence.ExhaustionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(c.Exhaustion)) {
	case "", "restart":
		return cadence.RestartReEngagement, nil
	case "hold":
		return cadence.HoldAfterReEngagement, nil
	default:
		return 0, fmt.Errorf("unknown exhaustion policy %q", c.Exhaustion)
	}
}

// Catalog loads the cadence file when configured, else the built-in catalog.
func (c *Config) Catalog() (*cadence.Catalog, error) {
	if c.CadenceFile == "" {
		return cadence.Default(), nil
	}
	catalog, err := cadence.LoadFile(c.CadenceFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return catalog, nil
}

// Engine builds a decision engine from the configured catalog and policy.
func (c *Config) Engine() (*cadence.Engine, error) {
	catalog, err := c.Catalog()
	if err != nil {
		return nil, err
	}
	policy, err := c.ExhaustionPolicy()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cadence.NewEngine(catalog, cadence.WithExhaustionPolicy(policy)), nil
}

// GmailToken returns the configured token path or the XDG default.
func (c *Config) GmailToken() string {
	if c.GmailTokenPath != "" {
		return c.GmailTokenPath
	}
	return filepath.Join(xdg.DataHome, "warmer", "gmail-token.json")
}
