// ABOUTME: Warming log database operations
// ABOUTME: Appends audit entries and lists them by company, client or run
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/warmer/models"
)

// AuditFilter narrows ListAuditEntries. Zero values match everything.
type AuditFilter struct {
	CompanyID int64
	ClientID  uuid.UUID
	RunID     string
	Status    string
	Limit     int
}

// InsertAuditEntry appends one warming_log row.
func InsertAuditEntry(ctx context.Context, db *sql.DB, entry *models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO warming_log (
			id, run_id, client_id, company_id, status,
			generated_subject, generated_body, error_message,
			cadence_name, cadence_step_prompt, reason,
			triggered_by, delivery_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		entry.ID.String(),
		entry.RunID,
		entry.ClientID.String(),
		entry.CompanyID,
		entry.Status,
		entry.GeneratedSubject,
		entry.GeneratedBody,
		entry.ErrorMessage,
		entry.CadenceName,
		entry.CadenceStepPrompt,
		entry.Reason,
		entry.TriggeredBy,
		entry.DeliveryID,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return dataAccess("insert audit entry", err)
	}
	return nil
}

// ListAuditEntries returns warming_log rows, newest first.
func ListAuditEntries(ctx context.Context, db *sql.DB, filter AuditFilter) ([]models.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.CompanyID != 0 {
		where = append(where, "w.company_id = ?")
		args = append(args, filter.CompanyID)
	}
	if filter.ClientID != uuid.Nil {
		where = append(where, "w.client_id = ?")
		args = append(args, filter.ClientID.String())
	}
	if filter.RunID != "" {
		where = append(where, "w.run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.Status != "" {
		where = append(where, "w.status = ?")
		args = append(args, filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT w.id, w.run_id, w.client_id, w.company_id, w.status,
		       w.generated_subject, w.generated_body, w.error_message,
		       w.cadence_name, w.cadence_step_prompt, w.reason,
		       w.triggered_by, w.delivery_id, w.created_at,
		       c.name, c.email
		FROM warming_log w
		LEFT JOIN clients c ON c.id = w.client_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY w.created_at DESC, w.id LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dataAccess("list audit entries", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			e                              models.AuditEntry
			idStr, clientStr               string
			subject, body, errMsg, cadence sql.NullString
			prompt, reason, deliveryID     sql.NullString
			clientName, clientEmail        sql.NullString
		)
		err := rows.Scan(
			&idStr, &e.RunID, &clientStr, &e.CompanyID, &e.Status,
			&subject, &body, &errMsg,
			&cadence, &prompt, &reason,
			&e.TriggeredBy, &deliveryID, &e.CreatedAt,
			&clientName, &clientEmail,
		)
		if err != nil {
			return nil, dataAccess("list audit entries", err)
		}
		if e.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("failed to parse audit ID: %w", err)
		}
		if e.ClientID, err = uuid.Parse(clientStr); err != nil {
			return nil, fmt.Errorf("failed to parse client ID: %w", err)
		}
		e.GeneratedSubject = subject.String
		e.GeneratedBody = body.String
		e.ErrorMessage = errMsg.String
		e.CadenceName = cadence.String
		e.CadenceStepPrompt = prompt.String
		e.Reason = reason.String
		e.DeliveryID = deliveryID.String
		e.ClientName = clientName.String
		e.ClientEmail = clientEmail.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dataAccess("list audit entries", err)
	}
	return entries, nil
}
