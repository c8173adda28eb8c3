// ABOUTME: Tests for the HTTP trigger server
// ABOUTME: Exercises /run, /log, /healthz, auth and CORS with httptest
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/warmer/db"
	"github.com/harperreed/warmer/models"
)

type fakeRunner struct {
	trigger   string
	companyID int64
	ctxErr    error
	summary   models.RunSummary
	err       error
}

func (f *fakeRunner) Run(ctx context.Context, trigger string, companyID int64) (models.RunSummary, error) {
	f.trigger = trigger
	f.companyID = companyID
	f.ctxErr = ctx.Err()
	s := f.summary
	s.Trigger = trigger
	s.CompanyID = companyID
	return s, f.err
}

func newTestServer(t *testing.T, r Runner, token string) (*Server, *db.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	_, err = database.Exec(`INSERT INTO company_settings (id, company_name, from_email, from_name) VALUES (1, 'Acme', 'hi@acme.test', 'Acme')`)
	require.NoError(t, err)

	srv := NewServer(r, database, Options{Token: token, DefaultCompanyID: 1, Logger: zerolog.Nop()})
	return srv, db.NewStore(database)
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, "secret")
	rec, out := do(t, srv.Handler(), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["ok"])
}

func TestRunDefaults(t *testing.T) {
	fr := &fakeRunner{summary: models.RunSummary{Company: "Acme", Evaluated: 3, Processed: 2, Succeeded: 1, Skipped: 1, Failed: 1}}
	srv, _ := newTestServer(t, fr, "")

	rec, out := do(t, srv.Handler(), http.MethodPost, "/run", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "system", fr.trigger)
	assert.Equal(t, int64(1), fr.companyID)
	assert.NoError(t, fr.ctxErr)

	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Warming agent run complete for Acme. Processed 2 clients, 1 successful.", out["message"])
	assert.Equal(t, float64(2), out["processed"])
	assert.Equal(t, float64(1), out["successful"])
	assert.Equal(t, float64(1), out["skipped"])
	assert.Equal(t, float64(3), out["evaluated"])
	assert.Equal(t, "system", out["triggered_by"])
}

func TestRunBodyOverrides(t *testing.T) {
	fr := &fakeRunner{summary: models.RunSummary{Company: "Acme"}}
	srv, _ := newTestServer(t, fr, "")

	rec, out := do(t, srv.Handler(), http.MethodPost, "/run", `{"triggered_by":"manual","company_id":2}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "manual", fr.trigger)
	assert.Equal(t, int64(2), fr.companyID)
	assert.Equal(t, "No clients to process today for Acme.", out["message"])
	assert.Equal(t, float64(0), out["processed"])
}

func TestRunBadJSON(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, "")
	rec, out := do(t, srv.Handler(), http.MethodPost, "/run", `{nope`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, out["success"])
}

func TestRunError(t *testing.T) {
	fr := &fakeRunner{err: errors.New("configuration error: no company settings for 1")}
	srv, _ := newTestServer(t, fr, "")

	rec, out := do(t, srv.Handler(), http.MethodPost, "/run", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "no company settings")
}

func TestTokenRequired(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, "secret")

	rec, _ := do(t, srv.Handler(), http.MethodPost, "/run", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, srv.Handler(), http.MethodGet, "/log", "", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, srv.Handler(), http.MethodPost, "/run", "", map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, "secret")
	rec, _ := do(t, srv.Handler(), http.MethodOptions, "/run", "", map[string]string{
		"Origin":                        "https://dashboard.example",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLog(t *testing.T) {
	srv, store := newTestServer(t, &fakeRunner{}, "")
	ctx := context.Background()

	client := &models.Client{CompanyID: 1, Name: "Dana", Email: "dana@example.com"}
	require.NoError(t, db.CreateClient(ctx, store.DB(), client))

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, status := range []string{models.OutcomeSent, models.OutcomeFailed} {
		require.NoError(t, store.AppendAudit(ctx, &models.AuditEntry{
			ID:          uuid.New(),
			RunID:       "run-1",
			ClientID:    client.ID,
			CompanyID:   1,
			Status:      status,
			TriggeredBy: "system",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	rec, out := do(t, srv.Handler(), http.MethodGet, "/log", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	entries := out["logEntries"].([]any)
	require.Len(t, entries, 2)
	first := entries[0].(map[string]any)
	assert.Equal(t, models.OutcomeFailed, first["status"])
	assert.Equal(t, "Dana", first["client_name"])
	assert.Equal(t, "dana@example.com", first["client_email"])

	_, out = do(t, srv.Handler(), http.MethodGet, "/log?status=sent", "", nil)
	assert.Len(t, out["logEntries"], 1)

	rec, _ = do(t, srv.Handler(), http.MethodGet, "/log?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogEmpty(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, "")
	rec, out := do(t, srv.Handler(), http.MethodGet, "/log", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, out["logEntries"])
}
