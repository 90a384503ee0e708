package api

import (
	"net/http"
	"time"

	"pkgindex/internal/domain"
	"pkgindex/internal/service/security"
)

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges Basic credentials for a signed session token. Tokens
// cannot open sessions; they are already bearer credentials.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	caller := domain.PrincipalFromContext(r.Context())

	var subject string
	switch v := caller.(type) {
	case domain.Admin:
		subject = domain.AdminID
	case *domain.User:
		subject = v.ID
	default:
		h.writeError(w, r, domain.ErrUnauthenticated("login requires user credentials"))
		return
	}

	signed, expires, err := security.IssueSession([]byte(h.cfg.Auth.JWTSecret), subject, h.cfg.Auth.SessionTTL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, loginResponse{Token: signed, ExpiresAt: expires})
}

// Self returns the caller's own redacted identity. Anonymous callers get the
// anonymous projection, not an error.
func (h *APIHandler) Self(w http.ResponseWriter, r *http.Request) {
	caller := domain.PrincipalFromContext(r.Context())
	redacted, err := h.identity.Redacted(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, redacted)
}

type changePasswordRequest struct {
	Current string `json:"current"`
	New     string `json:"new"`
}

// ChangePassword rotates the caller's own password.
func (h *APIHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := domain.PrincipalFromContext(r.Context())
	if err := h.users.ChangePassword(r.Context(), caller, req.Current, req.New); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"changed": true})
}
