package security

import (
	"context"

	"pkgindex/internal/domain"
)

// GroupService manages group lifecycle and membership.
type GroupService struct {
	groups domain.GroupRepository
	users  domain.UserRepository
	tokens domain.TokenRepository
	perms  *PermissionService
	audit  domain.AuditRepository
}

// NewGroupService creates a new GroupService.
func NewGroupService(groups domain.GroupRepository, users domain.UserRepository, tokens domain.TokenRepository, perms *PermissionService, audit domain.AuditRepository) *GroupService {
	return &GroupService{groups: groups, users: users, tokens: tokens, perms: perms, audit: audit}
}

// Create registers a new group. Requires meta.admin.
func (s *GroupService) Create(ctx context.Context, caller domain.Principal, name, displayName string) (*domain.Group, error) {
	if err := s.requireMetaAdmin(ctx, caller, "group.create"); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, domain.ErrValidation("group name is required")
	}
	g, err := s.groups.Create(ctx, &domain.Group{Name: name, DisplayName: displayName})
	if err != nil {
		return nil, err
	}
	s.log(ctx, caller, "group.create", name, domain.AuditOK)
	return g, nil
}

// List returns all groups.
func (s *GroupService) List(ctx context.Context) ([]domain.Group, error) {
	return s.groups.List(ctx)
}

// Lookup finds a group by "name" or "id".
func (s *GroupService) Lookup(ctx context.Context, method, value string) (*domain.Group, error) {
	switch method {
	case "name":
		return s.groups.GetByName(ctx, value)
	case "id":
		return s.groups.GetByID(ctx, value)
	default:
		return nil, domain.ErrValidation("unknown lookup method %q", method)
	}
}

// Members returns a group's membership rows.
func (s *GroupService) Members(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	return s.groups.Members(ctx, groupID)
}

// Delete removes a group together with its memberships and grants. Requires
// meta.admin.
func (s *GroupService) Delete(ctx context.Context, caller domain.Principal, g *domain.Group) error {
	if err := s.requireMetaAdmin(ctx, caller, "group.delete"); err != nil {
		return err
	}
	if err := s.groups.Delete(ctx, g.ID); err != nil {
		return err
	}
	s.log(ctx, caller, "group.delete", g.Name, domain.AuditOK)
	return nil
}

// AddMember adds a stored principal to a group. Requires meta.admin. The
// member must exist; adding an existing member is a no-op.
func (s *GroupService) AddMember(ctx context.Context, caller domain.Principal, g *domain.Group, memberType, memberID string) error {
	if err := s.requireMetaAdmin(ctx, caller, "group.member.add"); err != nil {
		return err
	}
	if err := s.checkMember(ctx, memberType, memberID); err != nil {
		return err
	}
	if err := s.groups.AddMember(ctx, g.ID, memberType, memberID); err != nil {
		return err
	}
	s.log(ctx, caller, "group.member.add", memberType+" "+memberID+" to "+g.Name, domain.AuditOK)
	return nil
}

// RemoveMember removes a principal from a group. Requires meta.admin.
// Removing an absent member is a no-op.
func (s *GroupService) RemoveMember(ctx context.Context, caller domain.Principal, g *domain.Group, memberType, memberID string) error {
	if err := s.requireMetaAdmin(ctx, caller, "group.member.remove"); err != nil {
		return err
	}
	if err := s.groups.RemoveMember(ctx, g.ID, memberType, memberID); err != nil {
		return err
	}
	s.log(ctx, caller, "group.member.remove", memberType+" "+memberID+" from "+g.Name, domain.AuditOK)
	return nil
}

func (s *GroupService) checkMember(ctx context.Context, memberType, memberID string) error {
	switch memberType {
	case "user":
		_, err := s.users.GetByID(ctx, memberID)
		return err
	case "token":
		_, err := s.tokens.GetByID(ctx, memberID)
		return err
	default:
		return domain.ErrValidation("unknown member type %q", memberType)
	}
}

func (s *GroupService) requireMetaAdmin(ctx context.Context, caller domain.Principal, action string) error {
	ok, err := s.perms.Has(ctx, caller, domain.PermMetaAdmin, nil)
	if err != nil {
		return err
	}
	if !ok {
		s.log(ctx, caller, action, "", domain.AuditDenied)
		return domain.ErrNotAuthorized("%s requires %s", action, domain.PermMetaAdmin)
	}
	return nil
}

func (s *GroupService) log(ctx context.Context, caller domain.Principal, action, detail, status string) {
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: domain.PrincipalName(caller),
		Action:    action,
		Detail:    detail,
		Status:    status,
	})
}
