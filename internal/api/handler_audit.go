package api

import (
	"net/http"
	"strconv"

	"pkgindex/internal/domain"
)

// ListAudit returns the audit log, newest first. Requires meta.admin.
func (h *APIHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	caller := domain.PrincipalFromContext(r.Context())
	ok, err := h.perms.Has(r.Context(), caller, domain.PermMetaAdmin, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !ok {
		h.writeError(w, r, domain.ErrNotAuthorized("reading the audit log requires %s", domain.PermMetaAdmin))
		return
	}

	page := domain.PageRequest{PageToken: r.URL.Query().Get("page_token")}
	if v := r.URL.Query().Get("max_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page.MaxResults = n
		}
	}

	entries, total, err := h.audit.List(r.Context(), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"entries":         entries,
		"total":           total,
		"next_page_token": domain.NextPageToken(page.Offset(), page.Limit(), total),
	})
}
