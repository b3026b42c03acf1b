package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"laporfasilitas.org/internal/admin"
	"laporfasilitas.org/internal/audit"
	"laporfasilitas.org/internal/auth"
	"laporfasilitas.org/internal/obs"
	"laporfasilitas.org/internal/report"
)

// ReadyProbe checks backing services for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the services the HTTP layer exposes.
type Config struct {
	Auth    *auth.Service
	Admins  *admin.Service
	Reports *report.Service
	Logs    *audit.Log
	Ready   ReadyProbe
	Version string
}

// API is the HTTP layer.
type API struct {
	mux     *http.ServeMux
	auth    *auth.Service
	admins  *admin.Service
	reports *report.Service
	logs    *audit.Log
	ready   ReadyProbe
	version string

	rateBurst  int
	ratePerSec int
}

func New(cfg Config) *API {
	a := &API{
		mux:     http.NewServeMux(),
		auth:    cfg.Auth,
		admins:  cfg.Admins,
		reports: cfg.Reports,
		logs:    cfg.Logs,
		ready:   cfg.Ready,
		version: cfg.Version,

		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	// reports
	a.mux.HandleFunc("/v1/reports", a.handleReportsCollection)
	a.mux.HandleFunc("/v1/reports/stats", a.handleReportStats)
	a.mux.HandleFunc("/v1/reports/", a.handleReportResource)

	// admins
	a.mux.HandleFunc("/v1/admins", a.handleAdminsCollection)
	a.mux.HandleFunc("/v1/admins/", a.handleAdminResource)

	// audit log
	a.mux.HandleFunc("/v1/admin/logs", a.handleAuditLogs)
	a.mux.HandleFunc("/v1/admin/logs/stream", a.StreamAuditLogs)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "lapor-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "lapor-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max))
	}
	return val, nil
}

// handleDomainError maps service errors onto HTTP status codes. Audit log
// write failures never surface here: the services swallow them before
// returning.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, report.ErrInvalidInput),
		errors.Is(err, admin.ErrSelfDeletion),
		errors.Is(err, admin.ErrTargetNotAdmin):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrEmailExists):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, report.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
