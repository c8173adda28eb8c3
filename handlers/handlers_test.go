// ABOUTME: Tests for outreach, viz and resource MCP handlers
// ABOUTME: Validates tool input/output and error handling against an in-memory database
package handlers

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/warmer/cadence"
	"github.com/harperreed/warmer/db"
	"github.com/harperreed/warmer/models"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type fakeRunner struct {
	trigger   string
	companyID int64
	summary   models.RunSummary
	err       error
}

func (f *fakeRunner) Run(_ context.Context, trigger string, companyID int64) (models.RunSummary, error) {
	f.trigger = trigger
	f.companyID = companyID
	s := f.summary
	s.Trigger = trigger
	return s, f.err
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.UpsertCompanySettings(context.Background(), database, &models.CompanySettings{
		ID: 1, CompanyName: "Acme", FromEmail: "hi@acme.test",
	}))
	return database
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRunOutreach(t *testing.T) {
	fr := &fakeRunner{summary: models.RunSummary{RunID: "r1", Company: "Acme", Evaluated: 2, Processed: 2, Succeeded: 1, Failed: 1}}
	h := NewOutreachHandlers(fr, setupTestDB(t), cadence.NewEngine(cadence.Default()), 1, 180)

	_, out, err := h.RunOutreach(context.Background(), nil, RunOutreachInput{})
	require.NoError(t, err)
	assert.Equal(t, "mcp", fr.trigger)
	assert.Equal(t, int64(1), fr.companyID)
	assert.Equal(t, "Run r1 for Acme: processed 2 clients, 1 successful, 1 failed, 0 skipped.", out.Message)
	assert.Equal(t, 1, out.Successful)
	assert.Equal(t, "mcp", out.TriggeredBy)

	_, out, err = h.RunOutreach(context.Background(), nil, RunOutreachInput{TriggeredBy: "agent", CompanyID: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), fr.companyID)
	assert.Equal(t, "agent", out.TriggeredBy)
}

func TestRunOutreachNoClients(t *testing.T) {
	fr := &fakeRunner{summary: models.RunSummary{Company: "Acme"}}
	h := NewOutreachHandlers(fr, setupTestDB(t), cadence.NewEngine(cadence.Default()), 1, 180)

	_, out, err := h.RunOutreach(context.Background(), nil, RunOutreachInput{})
	require.NoError(t, err)
	assert.Equal(t, "No clients to process today for Acme.", out.Message)
}

func TestRunOutreachError(t *testing.T) {
	fr := &fakeRunner{err: errors.New("boom")}
	h := NewOutreachHandlers(fr, setupTestDB(t), cadence.NewEngine(cadence.Default()), 1, 180)

	_, _, err := h.RunOutreach(context.Background(), nil, RunOutreachInput{})
	assert.ErrorContains(t, err, "boom")
}

func TestPreviewOutreach(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	newClient := &models.Client{CompanyID: 1, Name: "Nia", Email: "nia@example.com"}
	require.NoError(t, db.CreateClient(ctx, database, newClient))

	last := fixedNow.Add(-2 * 24 * time.Hour)
	onboarding := string(cadence.NewClientOnboarding)
	waiting := &models.Client{
		CompanyID:          1,
		Name:               "Wes",
		Email:              "wes@example.com",
		CurrentCadenceName: &onboarding,
		TotalMessagesCount: 1,
		LastContactDate:    &last,
	}
	require.NoError(t, db.CreateClient(ctx, database, waiting))

	h := NewOutreachHandlers(&fakeRunner{}, database, cadence.NewEngine(cadence.Default()), 1, 180)
	h.now = func() time.Time { return fixedNow }

	_, out, err := h.PreviewOutreach(ctx, nil, PreviewOutreachInput{})
	require.NoError(t, err)
	require.Len(t, out.Decisions, 2)

	byName := map[string]DecisionOutput{}
	for _, d := range out.Decisions {
		byName[d.ClientName] = d
	}

	nia := byName["Nia"]
	assert.True(t, nia.Due)
	assert.Equal(t, onboarding, nia.Cadence)
	assert.Equal(t, "new client onboarding", nia.Reason)
	assert.Equal(t, fixedNow.Add(7*24*time.Hour).Format(time.RFC3339), nia.NextContactDate)

	wes := byName["Wes"]
	assert.False(t, wes.Due)
	assert.Contains(t, wes.Trace, "WAIT: need 5 more days")
}

func TestListWarmingLog(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()
	client := &models.Client{CompanyID: 1, Name: "Dana", Email: "dana@example.com"}
	require.NoError(t, db.CreateClient(ctx, database, client))
	require.NoError(t, db.InsertAuditEntry(ctx, database, &models.AuditEntry{
		RunID: "r1", ClientID: client.ID, CompanyID: 1, Status: models.OutcomeSent,
		GeneratedSubject: "Hello", TriggeredBy: "system",
	}))
	require.NoError(t, db.InsertAuditEntry(ctx, database, &models.AuditEntry{
		RunID: "r2", ClientID: client.ID, CompanyID: 1, Status: models.OutcomeFailed,
		ErrorMessage: "delivery failed", TriggeredBy: "system",
	}))

	h := NewOutreachHandlers(&fakeRunner{}, database, cadence.NewEngine(cadence.Default()), 1, 180)

	_, out, err := h.ListWarmingLog(ctx, nil, ListWarmingLogInput{})
	require.NoError(t, err)
	assert.Len(t, out.Entries, 2)

	_, out, err = h.ListWarmingLog(ctx, nil, ListWarmingLogInput{RunID: "r1"})
	require.NoError(t, err)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "Hello", out.Entries[0].Subject)
	assert.Equal(t, "Dana", out.Entries[0].ClientName)

	_, out, err = h.ListWarmingLog(ctx, nil, ListWarmingLogInput{ClientID: client.ID.String(), Status: models.OutcomeFailed})
	require.NoError(t, err)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "delivery failed", out.Entries[0].ErrorMessage)

	_, _, err = h.ListWarmingLog(ctx, nil, ListWarmingLogInput{ClientID: "not-a-uuid"})
	assert.Error(t, err)
	_, _, err = h.ListWarmingLog(ctx, nil, ListWarmingLogInput{Status: "bounced"})
	assert.Error(t, err)
}

func TestCadenceGraph(t *testing.T) {
	h := NewVizHandlers(cadence.NewEngine(cadence.Default()))

	_, out, err := h.CadenceGraph(context.Background(), nil, CadenceGraphInput{Cadence: "RenewalPush"})
	require.NoError(t, err)
	assert.Equal(t, 4, out.NodeCount)
	assert.Contains(t, out.DOTSource, "RenewalPush_3")

	_, _, err = h.CadenceGraph(context.Background(), nil, CadenceGraphInput{Cadence: "Bogus"})
	assert.Error(t, err)
}

func TestReadResource(t *testing.T) {
	h := NewResourceHandlers(cadence.Default())
	read := func(uri string) (*mcp.ReadResourceResult, error) {
		return h.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	}

	res, err := read(CadencesURI)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Contains(t, res.Contents[0].Text, "ReEngagement")

	res, err = read(CadencesURI + "/ReEngagement")
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, "final re-engagement attempt")

	_, err = read("crm://contacts")
	assert.Error(t, err)
	_, err = read(CadencesURI + "/Nope")
	assert.Error(t, err)
}

func TestNewServer(t *testing.T) {
	server := NewServer(&fakeRunner{}, setupTestDB(t), cadence.NewEngine(cadence.Default()), ServerOptions{CompanyID: 1})
	assert.NotNil(t, server)
}
