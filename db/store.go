// ABOUTME: Store bundles the database operations a run needs behind one handle
// ABOUTME: Satisfies the runner's store interface over a shared *sql.DB
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/warmer/models"
)

// Store provides run-scoped access to clients, company settings and the warming log.
type Store struct {
	db *sql.DB
}

// NewStore creates a new store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) CompanySettings(ctx context.Context, companyID int64) (*models.CompanySettings, error) {
	return GetCompanySettings(ctx, s.db, companyID)
}

func (s *Store) DueClients(ctx context.Context, companyID int64, now time.Time) ([]models.Client, error) {
	return FetchDueClients(ctx, s.db, companyID, now)
}

func (s *Store) Claim(ctx context.Context, snapshot *models.Client, token string, now, until time.Time) (bool, error) {
	return ClaimClient(ctx, s.db, snapshot, token, now, until)
}

func (s *Store) Release(ctx context.Context, id uuid.UUID, token string, original *time.Time) error {
	return ReleaseClaim(ctx, s.db, id, token, original)
}

func (s *Store) RecordDelivery(ctx context.Context, id uuid.UUID, token string, update SendUpdate) error {
	return RecordDelivery(ctx, s.db, id, token, update)
}

func (s *Store) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	return InsertAuditEntry(ctx, s.db, entry)
}
