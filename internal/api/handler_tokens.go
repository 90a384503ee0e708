package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pkgindex/internal/domain"
)

type createTokenRequest struct {
	Description string `json:"description,omitempty"`
}

// tokenView is the listing form of a token. The secret only appears in the
// creation response.
type tokenView struct {
	ID          string    `json:"id"`
	Description string    `json:"description,omitempty"`
	Secret      string    `json:"secret,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateToken mints a bearer token linked to the calling user.
func (h *APIHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := domain.PrincipalFromContext(r.Context())
	tok, err := h.tokens.Create(r.Context(), caller, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tokenView{
		ID:          tok.ID,
		Description: tok.Description,
		Secret:      tok.Secret,
		CreatedAt:   tok.CreatedAt,
	})
}

// ListTokens returns the caller's own tokens without secrets.
func (h *APIHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	caller := domain.PrincipalFromContext(r.Context())
	own, err := h.tokens.ListOwn(r.Context(), caller)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	views := make([]tokenView, 0, len(own))
	for _, tok := range own {
		views = append(views, tokenView{ID: tok.ID, Description: tok.Description, CreatedAt: tok.CreatedAt})
	}
	h.writeJSON(w, http.StatusOK, views)
}

// DeleteToken revokes one token by id.
func (h *APIHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	caller := domain.PrincipalFromContext(r.Context())
	if err := h.tokens.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
