package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"laporfasilitas.org/internal/audit"
	"laporfasilitas.org/internal/auth"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 500
)

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actorID, ok := caller(w, r)
	if !ok {
		return
	}
	if err := a.auth.RequireRole(r.Context(), actorID, auth.RoleAdmin); err != nil {
		handleDomainError(w, r, err)
		return
	}

	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), defaultLogLimit, 1, maxLogLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := a.logs.List(r.Context(), limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": entries,
	})
}

// StreamAuditLogs pushes new audit entries over Server-Sent Events. Each
// event carries the entry id in the SSE id field; a viewer that reconnects
// and also refetches the list deduplicates on that id.
func (a *API) StreamAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actorID, ok := caller(w, r)
	if !ok {
		return
	}
	if err := a.auth.RequireRole(r.Context(), actorID, auth.RoleAdmin); err != nil {
		handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.logs.Subscribe(ctx)

	// Initial comment establishes the stream before the first entry.
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for entry := range ch {
		payload, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("id: " + entry.ID + "\n"))
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
