package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pkgindex/internal/domain"
)

type createGroupRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
}

// CreateGroup registers a new group. Requires meta.admin.
func (h *APIHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := domain.PrincipalFromContext(r.Context())
	g, err := h.groups.Create(r.Context(), caller, req.Name, req.DisplayName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, g)
}

// ListGroups returns all groups.
func (h *APIHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	all, err := h.groups.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, all)
}

func (h *APIHandler) lookupGroup(r *http.Request) (*domain.Group, error) {
	return h.groups.Lookup(r.Context(), chi.URLParam(r, "method"), chi.URLParam(r, "value"))
}

// GetGroup returns one group with its members.
func (h *APIHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.lookupGroup(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	members, err := h.groups.Members(r.Context(), g.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if members == nil {
		members = []domain.GroupMember{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"group": g, "members": members})
}

// DeleteGroup removes a group, its memberships, and its grants.
func (h *APIHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.lookupGroup(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := domain.PrincipalFromContext(r.Context())
	if err := h.groups.Delete(r.Context(), caller, g); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type groupMemberRequest struct {
	MemberType string `json:"member_type"`
	MemberID   string `json:"member_id"`
}

// AddGroupMember adds a user or token to a group. Requires meta.admin.
func (h *APIHandler) AddGroupMember(w http.ResponseWriter, r *http.Request) {
	g, err := h.lookupGroup(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req groupMemberRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := domain.PrincipalFromContext(r.Context())
	if err := h.groups.AddMember(r.Context(), caller, g, req.MemberType, req.MemberID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"added": true})
}

// RemoveGroupMember removes a member from a group. Requires meta.admin.
func (h *APIHandler) RemoveGroupMember(w http.ResponseWriter, r *http.Request) {
	g, err := h.lookupGroup(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req groupMemberRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := domain.PrincipalFromContext(r.Context())
	if err := h.groups.RemoveMember(r.Context(), caller, g, req.MemberType, req.MemberID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

// === Group permissions ===

func (h *APIHandler) groupTarget(r *http.Request) (domain.GrantTarget, error) {
	g, err := h.lookupGroup(r)
	if err != nil {
		return domain.GrantTarget{}, err
	}
	return domain.TargetOfGroup(g), nil
}

// AddGroupPermission grants a permission to a group; members inherit it.
func (h *APIHandler) AddGroupPermission(w http.ResponseWriter, r *http.Request) {
	target, err := h.groupTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.addPermission(w, r, target)
}

// RemoveGroupPermission revokes an exact permission tuple from a group.
func (h *APIHandler) RemoveGroupPermission(w http.ResponseWriter, r *http.Request) {
	target, err := h.groupTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.removePermission(w, r, target)
}

// ListGroupPermissions returns a group's permission set.
func (h *APIHandler) ListGroupPermissions(w http.ResponseWriter, r *http.Request) {
	target, err := h.groupTarget(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.listPermissions(w, r, target)
}
