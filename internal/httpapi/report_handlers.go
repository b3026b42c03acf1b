package httpapi

import (
	"net/http"
	"strings"

	"laporfasilitas.org/internal/report"
)

type updateStatusRequest struct {
	Status report.Status `json:"status"`
}

func (a *API) handleReportsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listReports(w, r)
	case http.MethodPost:
		a.submitReport(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleReportStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	counts, err := a.reports.Stats(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (a *API) handleReportResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/reports/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/status") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/status"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "report not found")
			return
		}
		if r.Method != http.MethodPatch {
			methodNotAllowed(w, r, http.MethodPatch)
			return
		}
		a.updateReportStatus(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodDelete:
		a.deleteReport(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodDelete)
	}
}

func (a *API) submitReport(w http.ResponseWriter, r *http.Request) {
	var req report.SubmitInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := a.reports.Submit(r.Context(), req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/reports/"+rep.ID)
	writeJSON(w, http.StatusCreated, rep)
}

func (a *API) listReports(w http.ResponseWriter, r *http.Request) {
	f := report.Filter{
		Location: report.Location(strings.TrimSpace(r.URL.Query().Get("location"))),
		Status:   report.Status(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	reports, err := a.reports.List(r.Context(), f)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if reports == nil {
		reports = []report.Report{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": reports,
	})
}

func (a *API) updateReportStatus(w http.ResponseWriter, r *http.Request, id string) {
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := a.reports.UpdateStatus(r.Context(), actorID, id, req.Status)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (a *API) deleteReport(w http.ResponseWriter, r *http.Request, id string) {
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	if err := a.reports.Delete(r.Context(), actorID, id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
