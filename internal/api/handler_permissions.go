package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pkgindex/internal/domain"
)

// Shared permission endpoints for user and group targets.

func (h *APIHandler) addPermission(w http.ResponseWriter, r *http.Request, target domain.GrantTarget) {
	var spec domain.PermissionSpec
	if err := h.decodeJSON(r, &spec); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := domain.PrincipalFromContext(r.Context())
	effective, err := h.perms.Add(r.Context(), caller, target, spec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, effective)
}

func (h *APIHandler) removePermission(w http.ResponseWriter, r *http.Request, target domain.GrantTarget) {
	var spec domain.PermissionSpec
	if err := h.decodeJSON(r, &spec); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := domain.PrincipalFromContext(r.Context())
	effective, err := h.perms.Remove(r.Context(), caller, target, spec)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, effective)
}

func (h *APIHandler) listPermissions(w http.ResponseWriter, r *http.Request, target domain.GrantTarget) {
	var project *string
	if p := chi.URLParam(r, "project"); p != "" {
		project = &p
	}
	effective, err := h.perms.List(r.Context(), target, project)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, effective)
}
