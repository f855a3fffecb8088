// Package api provides the HTTP surface for Watchpost: agent ingestion
// plus the JSON query endpoints the dashboard consumes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/watchpost/watchpost/internal/alerter"
	"github.com/watchpost/watchpost/internal/model"
	"github.com/watchpost/watchpost/internal/normalize"
	"github.com/watchpost/watchpost/internal/store"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/watchpost/watchpost/docs/swagger"
)

// maxIngestBody caps the size of a single telemetry payload.
const maxIngestBody = 1 << 20

// Server is the HTTP server for Watchpost.
type Server struct {
	store        *store.Store
	alerter      *alerter.Alerter
	apiKey       string
	offlineAfter time.Duration
	mux          *http.ServeMux
	server       *http.Server
}

// NewServer creates a new HTTP server. alerter may be nil to disable
// threshold evaluation on ingestion.
func NewServer(addr string, s *store.Store, a *alerter.Alerter, apiKey string, offlineAfter time.Duration) *Server {
	if offlineAfter <= 0 {
		offlineAfter = 20 * time.Second
	}
	srv := &Server{
		store:        s,
		alerter:      a,
		apiKey:       apiKey,
		offlineAfter: offlineAfter,
		mux:          http.NewServeMux(),
	}

	srv.registerRoutes()

	srv.server = &http.Server{
		Addr:         addr,
		Handler:      SecurityHeadersMiddleware(RequestIDMiddleware(RecoveryMiddleware(LoggingMiddleware(srv.mux)))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("HTTP server starting", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	// Agent write path, behind the shared secret
	s.mux.Handle("POST /ingest", RequireAPIKey(s.apiKey, http.HandlerFunc(s.handleIngest)))

	// Query endpoints (JSON)
	s.mux.HandleFunc("GET /api/hosts", s.handleHosts)
	s.mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	s.mux.HandleFunc("GET /api/kpis", s.handleKPIs)

	// Health check
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Swagger UI
	s.mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// writeJSON marshals v to JSON into a buffer first, then writes it to the
// response. This ensures marshalling errors can be returned as a proper 500.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding JSON response", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Debug("writing JSON response", "path", r.URL.Path, "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// ingestResponse is the acknowledgement body for POST /ingest.
type ingestResponse struct {
	Status         string `json:"status"`
	AlertsAccepted int    `json:"alerts_accepted"`
}

// @Summary Ingest telemetry
// @Description Accepts one telemetry payload from an agent: host metadata, resource utilization, and raw alert entries. Malformed fields are defaulted, not rejected.
// @Accept json
// @Produce json
// @Param X-API-Key header string true "Shared agent secret"
// @Param payload body object true "Telemetry payload"
// @Success 200 {object} ingestResponse
// @Failure 400 {object} map[string]string "Payload is not a JSON object"
// @Failure 401 {object} map[string]string "Missing or wrong API key"
// @Failure 500 {object} map[string]string "Storage failure"
// @Router /ingest [post]
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	receivedAt := time.Now()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := normalize.Payload(body, receivedAt)
	if err != nil {
		if !errors.Is(err, normalize.ErrInvalidPayload) {
			slog.Debug("rejecting payload", "error", err)
		}
		writeError(w, r, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := s.store.InsertMetric(&res.Metric); err != nil {
		slog.Error("storing metric sample", "host", res.Metric.Host, "error", err)
		writeError(w, r, http.StatusInternalServerError, "storage failure")
		return
	}
	for i := range res.Alerts {
		if err := s.store.InsertAlert(&res.Alerts[i]); err != nil {
			slog.Error("storing alert", "host", res.Alerts[i].Host, "error", err)
			writeError(w, r, http.StatusInternalServerError, "storage failure")
			return
		}
	}

	// Threshold evaluation happens after the payload's own data is durable.
	// Synthetic alerts never count toward the acknowledgement.
	if s.alerter != nil {
		if _, err := s.alerter.Process(r.Context(), res.Metric); err != nil {
			slog.Error("evaluating thresholds", "host", res.Metric.Host, "error", err)
		}
	}

	slog.Info("ingested telemetry",
		"host", res.Metric.Host,
		"os", res.Metric.OS,
		"alerts", len(res.Alerts),
		"skipped", res.Skipped,
		"request_id", RequestIDFromContext(r.Context()),
	)

	writeJSON(w, r, http.StatusOK, ingestResponse{
		Status:         "ok",
		AlertsAccepted: len(res.Alerts),
	})
}

// @Summary Host roster
// @Description Returns one entry per known (host, os) pair with its last-seen time and online/offline status.
// @Produce json
// @Success 200 {array} model.HostStatus
// @Failure 500 {object} map[string]string "Storage failure"
// @Router /api/hosts [get]
func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.store.ListHosts()
	if err != nil {
		slog.Error("querying host roster", "error", err)
		writeError(w, r, http.StatusInternalServerError, "storage failure")
		return
	}

	now := time.Now()
	for i := range hosts {
		if now.Sub(hosts[i].LastSeen) <= s.offlineAfter {
			hosts[i].Status = model.StatusOnline
		} else {
			hosts[i].Status = model.StatusOffline
		}
	}
	if hosts == nil {
		hosts = []model.HostStatus{}
	}
	writeJSON(w, r, http.StatusOK, hosts)
}

// @Summary Metric history
// @Description Returns utilization samples, newest first.
// @Produce json
// @Param host query string false "Restrict to one host"
// @Param limit query int false "Max rows" default(100)
// @Success 200 {array} model.MetricSample
// @Failure 500 {object} map[string]string "Storage failure"
// @Router /api/metrics [get]
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	limit := queryInt(r, "limit", 0)

	samples, err := s.store.ListMetrics(host, limit)
	if err != nil {
		slog.Error("querying metrics", "error", err)
		writeError(w, r, http.StatusInternalServerError, "storage failure")
		return
	}
	if samples == nil {
		samples = []model.MetricSample{}
	}
	writeJSON(w, r, http.StatusOK, samples)
}

// @Summary Alert history
// @Description Returns normalized alerts, newest first. Filters combine with AND; the os filter is a case-sensitive substring match.
// @Produce json
// @Param host query string false "Exact host match"
// @Param os query string false "Substring of the os label"
// @Param category query string false "auth, process, network or resource"
// @Param severity query string false "Severity label"
// @Param limit query int false "Max rows" default(200)
// @Success 200 {array} model.AlertRecord
// @Failure 500 {object} map[string]string "Storage failure"
// @Router /api/alerts [get]
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AlertFilter{
		Host:       q.Get("host"),
		OSContains: q.Get("os"),
		Category:   q.Get("category"),
		Severity:   q.Get("severity"),
		Limit:      queryInt(r, "limit", 0),
	}

	alerts, err := s.store.ListAlerts(filter)
	if err != nil {
		slog.Error("querying alerts", "error", err)
		writeError(w, r, http.StatusInternalServerError, "storage failure")
		return
	}
	if alerts == nil {
		alerts = []model.AlertRecord{}
	}
	writeJSON(w, r, http.StatusOK, alerts)
}

// @Summary Utilization KPIs
// @Description Returns average CPU/memory/disk utilization and the active alert count over a recent window.
// @Produce json
// @Param window query int false "Window in minutes (1-1440)" default(10)
// @Success 200 {object} model.KPISummary
// @Failure 500 {object} map[string]string "Storage failure"
// @Router /api/kpis [get]
func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	window := 10
	if v := queryInt(r, "window", 0); v > 0 && v <= 1440 {
		window = v
	}

	since := time.Now().Add(-time.Duration(window) * time.Minute)
	kpis, err := s.store.KPIs(since)
	if err != nil {
		slog.Error("querying KPIs", "error", err)
		writeError(w, r, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, r, http.StatusOK, kpis)
}

// @Summary Health check
// @Description Returns service health and database reachability.
// @Produce json
// @Success 200 {object} map[string]interface{} "Health status"
// @Failure 503 {object} map[string]interface{} "Database unreachable"
// @Router /healthz [get]
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.store.Ping(); err != nil {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
	})
}

// queryInt parses an integer query parameter, returning fallback when the
// parameter is absent or not a number.
func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
