// Package api implements the HTTP handlers and router for the package index.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"pkgindex/internal/config"
	"pkgindex/internal/domain"
	"pkgindex/internal/service/governance"
	"pkgindex/internal/service/index"
	"pkgindex/internal/service/security"
)

// APIHandler bundles the services behind the HTTP surface.
type APIHandler struct {
	cfg      *config.Config
	identity *security.IdentityService
	perms    *security.PermissionService
	users    *security.UserService
	tokens   *security.TokenService
	groups   *security.GroupService
	audit    *governance.AuditService
	resolver *index.Resolver
	logger   *slog.Logger
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(
	cfg *config.Config,
	identity *security.IdentityService,
	perms *security.PermissionService,
	users *security.UserService,
	tokens *security.TokenService,
	groups *security.GroupService,
	audit *governance.AuditService,
	resolver *index.Resolver,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		cfg:      cfg,
		identity: identity,
		perms:    perms,
		users:    users,
		tokens:   tokens,
		groups:   groups,
		audit:    audit,
		resolver: resolver,
		logger:   logger,
	}
}

// Health answers liveness probes.
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		h.writeJSON(w, status, map[string]any{"code": status, "message": "internal error"})
		return
	}
	h.writeJSON(w, status, map[string]any{"code": status, "message": err.Error()})
}

// decodeJSON decodes a request body, rejecting unknown fields.
func (h *APIHandler) decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}

// baseURL is the external URL clients should use for file downloads.
func (h *APIHandler) baseURL(r *http.Request) string {
	if h.cfg.BaseURL != "" {
		return h.cfg.BaseURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
