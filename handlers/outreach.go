// ABOUTME: Outreach MCP tool handlers
// ABOUTME: Implements run_outreach, preview_outreach and list_warming_log tools
package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/warmer/cadence"
	"github.com/harperreed/warmer/db"
	"github.com/harperreed/warmer/models"
	"github.com/harperreed/warmer/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Runner starts one outreach run.
type Runner interface {
	Run(ctx context.Context, trigger string, companyID int64) (models.RunSummary, error)
}

type OutreachHandlers struct {
	runner       Runner
	db           *sql.DB
	engine       *cadence.Engine
	companyID    int64
	fallbackDays int
	now          func() time.Time
}

func NewOutreachHandlers(r Runner, database *sql.DB, engine *cadence.Engine, companyID int64, fallbackDays int) *OutreachHandlers {
	if companyID == 0 {
		companyID = 1
	}
	return &OutreachHandlers{
		runner:       r,
		db:           database,
		engine:       engine,
		companyID:    companyID,
		fallbackDays: fallbackDays,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type RunOutreachInput struct {
	TriggeredBy string `json:"triggered_by,omitempty" jsonschema:"Who or what started the run (default mcp)"`
	CompanyID   int64  `json:"company_id,omitempty" jsonschema:"Company settings ID to run for (default from config)"`
}

type RunOutreachOutput struct {
	Message       string `json:"message"`
	RunID         string `json:"run_id"`
	Company       string `json:"company"`
	TriggeredBy   string `json:"triggered_by"`
	Evaluated     int    `json:"evaluated"`
	Processed     int    `json:"processed"`
	Successful    int    `json:"successful"`
	Skipped       int    `json:"skipped"`
	Failed        int    `json:"failed"`
	Contended     int    `json:"contended"`
	AuditFailures int    `json:"audit_failures"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at"`
}

func (h *OutreachHandlers) RunOutreach(ctx context.Context, request *mcp.CallToolRequest, input RunOutreachInput) (*mcp.CallToolResult, RunOutreachOutput, error) {
	trigger := input.TriggeredBy
	if trigger == "" {
		trigger = "mcp"
	}
	companyID := input.CompanyID
	if companyID == 0 {
		companyID = h.companyID
	}

	summary, err := h.runner.Run(ctx, trigger, companyID)
	if err != nil {
		return nil, RunOutreachOutput{}, fmt.Errorf("run failed: %w", err)
	}

	msg := fmt.Sprintf("Run %s for %s: processed %d clients, %d successful, %d failed, %d skipped.",
		summary.RunID, summary.Company, summary.Processed, summary.Succeeded, summary.Failed, summary.Skipped)
	if summary.Evaluated == 0 {
		msg = fmt.Sprintf("No clients to process today for %s.", summary.Company)
	}
	return nil, RunOutreachOutput{
		Message:       msg,
		RunID:         summary.RunID,
		Company:       summary.Company,
		TriggeredBy:   summary.Trigger,
		Evaluated:     summary.Evaluated,
		Processed:     summary.Processed,
		Successful:    summary.Succeeded,
		Skipped:       summary.Skipped,
		Failed:        summary.Failed,
		Contended:     summary.Contended,
		AuditFailures: summary.AuditFailures,
		StartedAt:     summary.StartedAt.Format(time.RFC3339),
		FinishedAt:    summary.FinishedAt.Format(time.RFC3339),
	}, nil
}

type PreviewOutreachInput struct {
	CompanyID int64 `json:"company_id,omitempty" jsonschema:"Company settings ID to preview (default from config)"`
}

type DecisionOutput struct {
	ClientID        string   `json:"client_id"`
	ClientName      string   `json:"client_name"`
	Email           string   `json:"email"`
	Due             bool     `json:"due"`
	Cadence         string   `json:"cadence,omitempty"`
	StepIndex       int      `json:"step_index,omitempty"`
	Intent          string   `json:"intent,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	NextContactDate string   `json:"next_contact_date,omitempty"`
	Trace           []string `json:"trace"`
}

type PreviewOutreachOutput struct {
	Decisions []DecisionOutput `json:"decisions"`
}

func (h *OutreachHandlers) PreviewOutreach(ctx context.Context, request *mcp.CallToolRequest, input PreviewOutreachInput) (*mcp.CallToolResult, PreviewOutreachOutput, error) {
	companyID := input.CompanyID
	if companyID == 0 {
		companyID = h.companyID
	}

	decisions, err := runner.Preview(ctx, db.NewStore(h.db), h.engine, companyID, h.now(), h.fallbackDays)
	if err != nil {
		return nil, PreviewOutreachOutput{}, fmt.Errorf("failed to preview run: %w", err)
	}

	out := PreviewOutreachOutput{Decisions: make([]DecisionOutput, len(decisions))}
	for i, d := range decisions {
		out.Decisions[i] = decisionToOutput(d)
	}
	return nil, out, nil
}

func decisionToOutput(d runner.Decision) DecisionOutput {
	o := DecisionOutput{
		ClientID:   d.Client.ID.String(),
		ClientName: d.Client.Name,
		Email:      d.Client.Email,
		Trace:      d.Trace,
	}
	if d.Action != nil {
		o.Due = true
		o.Cadence = d.Action.EffectiveCadence(&d.Client)
		o.StepIndex = d.Action.StepIndex
		o.Intent = d.Action.Step.Intent
		o.Reason = d.Action.Reason
	}
	if d.Next != nil {
		o.NextContactDate = d.Next.Format(time.RFC3339)
	}
	return o
}

type ListWarmingLogInput struct {
	ClientID string `json:"client_id,omitempty" jsonschema:"Only entries for this client UUID"`
	RunID    string `json:"run_id,omitempty" jsonschema:"Only entries from this run"`
	Status   string `json:"status,omitempty" jsonschema:"sent or failed"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of entries (default 50)"`
}

type LogEntryOutput struct {
	ID           string `json:"id"`
	RunID        string `json:"run_id"`
	ClientID     string `json:"client_id"`
	ClientName   string `json:"client_name,omitempty"`
	ClientEmail  string `json:"client_email,omitempty"`
	Status       string `json:"status"`
	Subject      string `json:"generated_subject,omitempty"`
	Body         string `json:"generated_body,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Cadence      string `json:"cadence_name,omitempty"`
	Reason       string `json:"reason,omitempty"`
	TriggeredBy  string `json:"triggered_by"`
	DeliveryID   string `json:"delivery_id,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type ListWarmingLogOutput struct {
	Entries []LogEntryOutput `json:"entries"`
}

func (h *OutreachHandlers) ListWarmingLog(ctx context.Context, request *mcp.CallToolRequest, input ListWarmingLogInput) (*mcp.CallToolResult, ListWarmingLogOutput, error) {
	filter := db.AuditFilter{
		CompanyID: h.companyID,
		RunID:     input.RunID,
		Status:    input.Status,
		Limit:     input.Limit,
	}
	if input.Status != "" && input.Status != models.OutcomeSent && input.Status != models.OutcomeFailed {
		return nil, ListWarmingLogOutput{}, fmt.Errorf("invalid status: %s (valid: sent, failed)", input.Status)
	}
	if input.ClientID != "" {
		id, err := uuid.Parse(input.ClientID)
		if err != nil {
			return nil, ListWarmingLogOutput{}, fmt.Errorf("invalid client_id: %w", err)
		}
		filter.ClientID = id
	}

	entries, err := db.ListAuditEntries(ctx, h.db, filter)
	if err != nil {
		return nil, ListWarmingLogOutput{}, fmt.Errorf("failed to list warming log: %w", err)
	}
	out := ListWarmingLogOutput{Entries: make([]LogEntryOutput, len(entries))}
	for i := range entries {
		out.Entries[i] = logEntryToOutput(&entries[i])
	}
	return nil, out, nil
}

func logEntryToOutput(e *models.AuditEntry) LogEntryOutput {
	return LogEntryOutput{
		ID:           e.ID.String(),
		RunID:        e.RunID,
		ClientID:     e.ClientID.String(),
		ClientName:   e.ClientName,
		ClientEmail:  e.ClientEmail,
		Status:       e.Status,
		Subject:      e.GeneratedSubject,
		Body:         e.GeneratedBody,
		ErrorMessage: e.ErrorMessage,
		Cadence:      e.CadenceName,
		Reason:       e.Reason,
		TriggeredBy:  e.TriggeredBy,
		DeliveryID:   e.DeliveryID,
		CreatedAt:    e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
