package httpapi

import (
	"net/http"
	"strings"

	"laporfasilitas.org/internal/admin"
	"laporfasilitas.org/internal/auth"
)

func (a *API) handleAdminsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listAdmins(w, r)
	case http.MethodPost:
		a.createAdmin(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAdminResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/admins/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/password") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/password"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "admin not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.resetAdminPassword(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodDelete:
		a.deleteAdmin(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodDelete)
	}
}

func (a *API) listAdmins(w http.ResponseWriter, r *http.Request) {
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	admins, err := a.admins.ListAdmins(r.Context(), actorID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if admins == nil {
		admins = []*auth.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": admins,
	})
}

func (a *API) createAdmin(w http.ResponseWriter, r *http.Request) {
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	var req admin.CreateAdminInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.admins.CreateAdmin(r.Context(), actorID, req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/admins/"+user.ID)
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) deleteAdmin(w http.ResponseWriter, r *http.Request, targetID string) {
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	if err := a.admins.DeleteAdmin(r.Context(), actorID, targetID); err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) resetAdminPassword(w http.ResponseWriter, r *http.Request, targetID string) {
	actorID, ok := caller(w, r)
	if !ok {
		return
	}

	var req admin.ResetPasswordInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.admins.ResetPassword(r.Context(), actorID, targetID, req); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "password_updated",
	})
}
