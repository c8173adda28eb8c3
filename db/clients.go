// ABOUTME: Database operations for client scheduling state
// ABOUTME: Fetches the due working set and applies claim, release and post-send updates
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/warmer/models"
)

const clientColumns = `
	id, company_id, name, email, linkedin, status,
	expiration_date, last_contact_date, next_contact_date,
	current_cadence_name, total_messages_count, created_at, updated_at
`

// SendUpdate is the schedule advance applied after a successful delivery.
type SendUpdate struct {
	ContactedAt     time.Time
	NextContactDate time.Time
	CadenceName     string
}

// CreateClient inserts a new client record.
func CreateClient(ctx context.Context, db *sql.DB, client *models.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	if client.Status == "" {
		client.Status = models.StatusActive
	}
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	query := `
		INSERT INTO clients (
			id, company_id, name, email, linkedin, status,
			expiration_date, last_contact_date, next_contact_date,
			current_cadence_name, total_messages_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		client.ID.String(),
		client.CompanyID,
		client.Name,
		client.Email,
		client.LinkedIn,
		client.Status,
		nullTime(client.ExpirationDate),
		nullTime(client.LastContactDate),
		nullTime(client.NextContactDate),
		client.CurrentCadenceName,
		client.TotalMessagesCount,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		return dataAccess("create client", err)
	}
	return nil
}

// GetClient returns a client by ID, or nil when it does not exist.
func GetClient(ctx context.Context, db *sql.DB, id uuid.UUID) (*models.Client, error) {
	row := db.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = ?", id.String())
	client, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dataAccess("get client", err)
	}
	return client, nil
}

// ListClients returns a company's clients ordered by name.
func ListClients(ctx context.Context, db *sql.DB, companyID int64, limit int) ([]models.Client, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE company_id = ? ORDER BY name LIMIT ?",
		companyID, limit)
	if err != nil {
		return nil, dataAccess("list clients", err)
	}
	return collectClients(rows, "list clients")
}

// FetchDueClients returns active clients whose next contact date is unset or not after now.
func FetchDueClients(ctx context.Context, db *sql.DB, companyID int64, now time.Time) ([]models.Client, error) {
	query := `SELECT ` + clientColumns + `
		FROM clients
		WHERE company_id = ?
		  AND status = 'active'
		  AND (next_contact_date IS NULL OR next_contact_date <= ?)
		ORDER BY next_contact_date IS NOT NULL, next_contact_date, created_at
	`
	rows, err := db.QueryContext(ctx, query, companyID, now.UTC())
	if err != nil {
		return nil, dataAccess("fetch due clients", err)
	}
	return collectClients(rows, "fetch due clients")
}

// ClaimClient takes a lease on a due client so overlapping runs skip it. The
// next contact date moves to until for the lease duration. It reports false
// when the client is no longer due, another run holds it, or it has been
// contacted since snapshot was read.
func ClaimClient(ctx context.Context, db *sql.DB, snapshot *models.Client, token string, now, until time.Time) (bool, error) {
	query := `
		UPDATE clients
		SET claim_token = ?, claimed_until = ?, next_contact_date = ?, updated_at = ?
		WHERE id = ?
		  AND status = 'active'
		  AND (next_contact_date IS NULL OR next_contact_date <= ?)
		  AND (claimed_until IS NULL OR claimed_until <= ?)
		  AND total_messages_count = ?
		  AND current_cadence_name IS ?
	`
	res, err := db.ExecContext(ctx, query,
		token, until.UTC(), until.UTC(), now.UTC(),
		snapshot.ID.String(), now.UTC(), now.UTC(),
		snapshot.TotalMessagesCount, nullString(snapshot.CurrentCadenceName))
	if err != nil {
		return false, dataAccess("claim client", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dataAccess("claim client", err)
	}
	return n == 1, nil
}

// ReleaseClaim drops a lease and restores the next contact date seen before the claim.
func ReleaseClaim(ctx context.Context, db *sql.DB, id uuid.UUID, token string, original *time.Time) error {
	query := `
		UPDATE clients
		SET claim_token = NULL, claimed_until = NULL, next_contact_date = ?, updated_at = ?
		WHERE id = ? AND claim_token = ?
	`
	res, err := db.ExecContext(ctx, query, nullTime(original), time.Now().UTC(), id.String(), token)
	if err != nil {
		return dataAccess("release claim", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: release claim: %w", ErrDataAccess, ErrClaimLost)
	}
	return nil
}

// RecordDelivery advances a claimed client's schedule after a successful send
// and drops the lease. The message count is incremented in place.
func RecordDelivery(ctx context.Context, db *sql.DB, id uuid.UUID, token string, update SendUpdate) error {
	query := `
		UPDATE clients
		SET last_contact_date = ?,
		    next_contact_date = ?,
		    current_cadence_name = ?,
		    total_messages_count = total_messages_count + 1,
		    claim_token = NULL,
		    claimed_until = NULL,
		    updated_at = ?
		WHERE id = ? AND claim_token = ?
	`
	res, err := db.ExecContext(ctx, query,
		update.ContactedAt.UTC(),
		update.NextContactDate.UTC(),
		update.CadenceName,
		update.ContactedAt.UTC(),
		id.String(),
		token,
	)
	if err != nil {
		return dataAccess("record delivery", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dataAccess("record delivery", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: record delivery: %w", ErrDataAccess, ErrClaimLost)
	}
	return nil
}

// SetClientStatus changes a client's status.
func SetClientStatus(ctx context.Context, db *sql.DB, id uuid.UUID, status string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE clients SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC(), id.String())
	if err != nil {
		return dataAccess("set client status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("client not found: %s", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*models.Client, error) {
	var (
		client                 models.Client
		idStr                  string
		linkedIn, cadence      sql.NullString
		expiration, last, next sql.NullTime
	)
	err := row.Scan(
		&idStr, &client.CompanyID, &client.Name, &client.Email, &linkedIn, &client.Status,
		&expiration, &last, &next,
		&cadence, &client.TotalMessagesCount, &client.CreatedAt, &client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	client.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client ID: %w", err)
	}
	client.LinkedIn = linkedIn.String
	client.ExpirationDate = timePtr(expiration)
	client.LastContactDate = timePtr(last)
	client.NextContactDate = timePtr(next)
	if cadence.Valid {
		name := cadence.String
		client.CurrentCadenceName = &name
	}
	return &client, nil
}

func collectClients(rows *sql.Rows, op string) ([]models.Client, error) {
	defer func() {
		_ = rows.Close()
	}()

	var clients []models.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, dataAccess(op, err)
		}
		clients = append(clients, *client)
	}
	if err := rows.Err(); err != nil {
		return nil, dataAccess(op, err)
	}
	return clients, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
