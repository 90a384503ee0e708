package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetPackage resolves a project from the local index or the configured
// proxies. Lookups are open to any caller, authenticated or not.
func (h *APIHandler) GetPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.resolver.Resolve(r.Context(), chi.URLParam(r, "project"), h.baseURL(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pkg)
}
