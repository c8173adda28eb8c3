// ABOUTME: Company settings database operations
// ABOUTME: Reads and upserts the tenant row that scopes a run
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/harperreed/warmer/models"
)

// GetCompanySettings returns the settings row, or nil when it does not exist.
func GetCompanySettings(ctx context.Context, db *sql.DB, id int64) (*models.CompanySettings, error) {
	settings := &models.CompanySettings{}
	var fromName sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, company_name, from_email, from_name
		FROM company_settings WHERE id = ?
	`, id).Scan(&settings.ID, &settings.CompanyName, &settings.FromEmail, &fromName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dataAccess("get company settings", err)
	}
	settings.FromName = fromName.String
	return settings, nil
}

// UpsertCompanySettings creates or replaces the settings row.
func UpsertCompanySettings(ctx context.Context, db *sql.DB, settings *models.CompanySettings) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO company_settings (id, company_name, from_email, from_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			company_name = excluded.company_name,
			from_email = excluded.from_email,
			from_name = excluded.from_name,
			updated_at = excluded.updated_at
	`, settings.ID, settings.CompanyName, settings.FromEmail, settings.FromName, now, now)
	if err != nil {
		return dataAccess("upsert company settings", err)
	}
	return nil
}

// ListCompanySettings returns every configured company.
func ListCompanySettings(ctx context.Context, db *sql.DB) ([]models.CompanySettings, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, company_name, from_email, from_name
		FROM company_settings ORDER BY id
	`)
	if err != nil {
		return nil, dataAccess("list company settings", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []models.CompanySettings
	for rows.Next() {
		var s models.CompanySettings
		var fromName sql.NullString
		if err := rows.Scan(&s.ID, &s.CompanyName, &s.FromEmail, &fromName); err != nil {
			return nil, dataAccess("list company settings", err)
		}
		s.FromName = fromName.String
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, dataAccess("list company settings", err)
	}
	return out, nil
}
