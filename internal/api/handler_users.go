package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pkgindex/internal/domain"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// CreateUser registers a new account. Requires meta.admin.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := domain.PrincipalFromContext(r.Context())
	u, err := h.users.Create(r.Context(), caller, req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	redacted, err := h.identity.Redacted(r.Context(), u)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, redacted)
}

// ListUsers returns every stored account in redacted form, plus the admin
// when the account is active.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	stored, err := h.users.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]*domain.RedactedPrincipal, 0, len(stored)+1)
	if admin := h.identity.Admin(); admin.Enabled {
		redacted, err := h.identity.Redacted(r.Context(), domain.Admin{Username: admin.Username})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		out = append(out, redacted)
	}
	for _, u := range stored {
		redacted, err := h.identity.Redacted(r.Context(), u)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		out = append(out, redacted)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// lookupUser resolves the {method}/{value} route pair to a principal.
func (h *APIHandler) lookupUser(r *http.Request) (domain.Principal, error) {
	return h.identity.Lookup(r.Context(), chi.URLParam(r, "method"), chi.URLParam(r, "value"))
}

// GetUser returns one account in redacted form.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	target, err := h.lookupUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	redacted, err := h.identity.Redacted(r.Context(), target)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, redacted)
}

// DeleteUser removes an account.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	target, err := h.lookupUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := domain.PrincipalFromContext(r.Context())
	if err := h.users.Delete(r.Context(), caller, target); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// DeleteSelf removes the caller's own account.
func (h *APIHandler) DeleteSelf(w http.ResponseWriter, r *http.Request) {
	caller := domain.PrincipalFromContext(r.Context())
	if err := h.users.Delete(r.Context(), caller, caller); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// === User permissions ===

func (h *APIHandler) userTarget(r *http.Request) (domain.GrantTarget, error) {
	p, err := h.lookupUser(r)
	if err != nil {
		return domain.GrantTarget{}, err
	}
	return domain.TargetOfPrincipal(p)
}

// AddUserPermission grants a permission to a user and returns the user's
// effective permission set.
func (h *APIHandler) AddUserPermission(w http.ResponseWriter, r *http.Request) {
	target, err := h.userTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.addPermission(w, r, target)
}

// RemoveUserPermission revokes an exact permission tuple from a user.
func (h *APIHandler) RemoveUserPermission(w http.ResponseWriter, r *http.Request) {
	target, err := h.userTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.removePermission(w, r, target)
}

// ListUserPermissions returns a user's effective permission set, optionally
// filtered to one project.
func (h *APIHandler) ListUserPermissions(w http.ResponseWriter, r *http.Request) {
	target, err := h.userTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.listPermissions(w, r, target)
}
