// ABOUTME: HTTP trigger server for outreach runs
// ABOUTME: Exposes POST /run, GET /log and GET /healthz behind CORS and optional bearer auth
package web

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/harperreed/warmer/db"
	"github.com/harperreed/warmer/models"
	"github.com/harperreed/warmer/runner"
)

// Runner starts one outreach run.
type Runner interface {
	Run(ctx context.Context, trigger string, companyID int64) (models.RunSummary, error)
}

type Options struct {
	// Token, when set, is required as a bearer token on /run and /log.
	Token            string
	DefaultCompanyID int64
	Logger           zerolog.Logger
}

type Server struct {
	runner   Runner
	db       *sql.DB
	opts     Options
	log      zerolog.Logger
	handler  http.Handler
	shutdown time.Duration
}

func NewServer(r Runner, database *sql.DB, opts Options) *Server {
	if opts.DefaultCompanyID == 0 {
		opts.DefaultCompanyID = 1
	}
	s := &Server{
		runner:   r,
		db:       database,
		opts:     opts,
		log:      opts.Logger,
		shutdown: 30 * time.Second,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Client-Info", "Apikey"},
	}))

	r.Get("/healthz", healthHandler)
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/run", s.handleRun)
		r.Get("/log", s.handleLog)
	})
	return r
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http trigger listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdown)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.Token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type runRequest struct {
	TriggeredBy string `json:"triggered_by"`
	CompanyID   int64  `json:"company_id"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON body"})
		return
	}
	if req.TriggeredBy == "" {
		req.TriggeredBy = runner.DefaultTrigger
	}
	if req.CompanyID == 0 {
		req.CompanyID = s.opts.DefaultCompanyID
	}

	// A dropped connection must not abort records mid-send.
	ctx := context.WithoutCancel(r.Context())
	summary, err := s.runner.Run(ctx, req.TriggeredBy, req.CompanyID)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", summary.RunID).Msg("run failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, RunResponse(summary))
}

// RunResponse renders a summary in the trigger's response shape.
func RunResponse(summary models.RunSummary) map[string]any {
	if summary.Evaluated == 0 {
		return map[string]any{
			"success":      true,
			"message":      fmt.Sprintf("No clients to process today for %s.", summary.Company),
			"processed":    0,
			"successful":   0,
			"company":      summary.Company,
			"triggered_by": summary.Trigger,
			"run_id":       summary.RunID,
		}
	}
	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Warming agent run complete for %s. Processed %d clients, %d successful.",
			summary.Company, summary.Processed, summary.Succeeded),
		"processed":      summary.Processed,
		"successful":     summary.Succeeded,
		"skipped":        summary.Skipped,
		"evaluated":      summary.Evaluated,
		"failed":         summary.Failed,
		"contended":      summary.Contended,
		"audit_failures": summary.AuditFailures,
		"company":        summary.Company,
		"triggered_by":   summary.Trigger,
		"run_id":         summary.RunID,
	}
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	filter := db.AuditFilter{Limit: 50, Status: r.URL.Query().Get("status"), RunID: r.URL.Query().Get("run_id")}
	if v := r.URL.Query().Get("company_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid company_id"})
			return
		}
		filter.CompanyID = id
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		filter.Limit = n
	}

	entries, err := db.ListAuditEntries(r.Context(), s.db, filter)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to fetch warming log")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch logs"})
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "logEntries": entries})
}
