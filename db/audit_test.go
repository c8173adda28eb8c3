package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/warmer/models"
)

func TestAuditEntries(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	dana := addClient(t, database, "dana", nil)
	lee := addClient(t, database, "lee", nil)

	sent := &models.AuditEntry{
		RunID:             "01J0RUN",
		ClientID:          dana.ID,
		CompanyID:         1,
		Status:            models.OutcomeSent,
		GeneratedSubject:  "Checking in",
		GeneratedBody:     "Hi Dana",
		CadenceName:       "StandardNurture",
		CadenceStepPrompt: "Check in.",
		Reason:            "starting standard nurture",
		TriggeredBy:       "cron",
		DeliveryID:        "msg-1",
		CreatedAt:         testNow,
	}
	failed := &models.AuditEntry{
		RunID:        "01J0RUN",
		ClientID:     lee.ID,
		CompanyID:    1,
		Status:       models.OutcomeFailed,
		ErrorMessage: "generation error: empty body",
		TriggeredBy:  "cron",
		CreatedAt:    testNow.Add(time.Second),
	}
	require.NoError(t, InsertAuditEntry(ctx, database, sent))
	require.NoError(t, InsertAuditEntry(ctx, database, failed))

	all, err := ListAuditEntries(ctx, database, AuditFilter{CompanyID: 1})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, lee.ID, all[0].ClientID, "newest first")
	assert.Equal(t, "generation error: empty body", all[0].ErrorMessage)
	assert.Equal(t, "msg-1", all[1].DeliveryID)

	onlyDana, err := ListAuditEntries(ctx, database, AuditFilter{ClientID: dana.ID})
	require.NoError(t, err)
	require.Len(t, onlyDana, 1)
	assert.Equal(t, "Check in.", onlyDana[0].CadenceStepPrompt)
	assert.Equal(t, "dana", onlyDana[0].ClientName)
	assert.Equal(t, dana.Email, onlyDana[0].ClientEmail)

	onlyFailed, err := ListAuditEntries(ctx, database, AuditFilter{Status: models.OutcomeFailed, RunID: "01J0RUN"})
	require.NoError(t, err)
	assert.Len(t, onlyFailed, 1)
}

func TestAuditLogIsAppendOnly(t *testing.T) {
	database := setupTestDB(t)
	dana := addClient(t, database, "dana", nil)
	entry := &models.AuditEntry{
		RunID: "r", ClientID: dana.ID, CompanyID: 1, Status: models.OutcomeSent, TriggeredBy: "manual",
	}
	require.NoError(t, InsertAuditEntry(context.Background(), database, entry))

	_, err := database.Exec("UPDATE warming_log SET status = 'failed'")
	assert.Error(t, err)
	_, err = database.Exec("DELETE FROM warming_log")
	assert.Error(t, err)

	_, err = database.Exec("INSERT INTO warming_log (id, run_id, client_id, company_id, status, triggered_by, created_at) VALUES ('x', 'r', 'c', 1, 'bounced', 'manual', CURRENT_TIMESTAMP)")
	assert.Error(t, err, "status is constrained to sent or failed")
}
