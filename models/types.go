// ABOUTME: Data models for the outreach scheduler
// ABOUTME: Defines Client, Step, Action, AuditEntry, CompanySettings and RunSummary
package models

import (
	"time"

	"github.com/google/uuid"
)

// Client status constants.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPaused   = "paused"
)

// Audit outcome constants.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Client is one tracked contact and its scheduling state.
type Client struct {
	ID                 uuid.UUID  `json:"id"`
	CompanyID          int64      `json:"company_id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	LinkedIn           string     `json:"linkedin,omitempty"`
	Status             string     `json:"status"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
	LastContactDate    *time.Time `json:"last_contact_date,omitempty"`
	NextContactDate    *time.Time `json:"next_contact_date,omitempty"`
	CurrentCadenceName *string    `json:"current_cadence_name,omitempty"`
	TotalMessagesCount int        `json:"total_messages_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CadenceName returns the current cadence name or "" when unset.
func (c *Client) CadenceName() string {
	if c.CurrentCadenceName == nil {
		return ""
	}
	return *c.CurrentCadenceName
}

// IsDue reports whether the client belongs to the working set at now.
func (c *Client) IsDue(now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	return c.NextContactDate == nil || !c.NextContactDate.After(now)
}

// Step is one stage of a cadence.
type Step struct {
	DelayDays int    `json:"delay_days" yaml:"delay_days"`
	Intent    string `json:"intent" yaml:"intent"`
}

// Action is the outcome of a decision for one client.
type Action struct {
	Step           Step    `json:"step"`
	StepIndex      int     `json:"step_index"`
	Cadence        string  `json:"cadence"`
	Reason         string  `json:"reason"`
	NewCadenceName *string `json:"new_cadence_name,omitempty"`
}

// EffectiveCadence is the cadence the client is in once the action is applied.
func (a *Action) EffectiveCadence(c *Client) string {
	if a.NewCadenceName != nil {
		return *a.NewCadenceName
	}
	return c.CadenceName()
}

// Content is a generated message.
type Content struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// CompanySettings scopes a run to one tenant.
type CompanySettings struct {
	ID          int64  `json:"id"`
	CompanyName string `json:"company_name"`
	FromEmail   string `json:"from_email"`
	FromName    string `json:"from_name,omitempty"`
}

// FromAddress formats the From header for outgoing mail.
func (s *CompanySettings) FromAddress() string {
	if s.FromName != "" {
		return s.FromName + " <" + s.FromEmail + ">"
	}
	return s.FromEmail
}

// AuditEntry is one append-only warming_log row.
type AuditEntry struct {
	ID                uuid.UUID `json:"id"`
	RunID             string    `json:"run_id"`
	ClientID          uuid.UUID `json:"client_id"`
	CompanyID         int64     `json:"company_id"`
	Status            string    `json:"status"`
	GeneratedSubject  string    `json:"generated_subject,omitempty"`
	GeneratedBody     string    `json:"generated_body,omitempty"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	CadenceName       string    `json:"cadence_name,omitempty"`
	CadenceStepPrompt string    `json:"cadence_step_prompt,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	TriggeredBy       string    `json:"triggered_by"`
	DeliveryID        string    `json:"delivery_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`

	// Joined from clients on read; never written.
	ClientName  string `json:"client_name,omitempty"`
	ClientEmail string `json:"client_email,omitempty"`
}

// RunSummary aggregates counters for one invocation. It is never persisted.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	Trigger       string    `json:"triggered_by"`
	CompanyID     int64     `json:"company_id"`
	Company       string    `json:"company,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Evaluated     int       `json:"evaluated"`
	Processed     int       `json:"processed"`
	Succeeded     int       `json:"successful"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	Contended     int       `json:"contended"`
	AuditFailures int       `json:"audit_failures"`
	Cancelled     bool      `json:"cancelled"`
}
