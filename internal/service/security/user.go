package security

import (
	"context"

	"pkgindex/internal/domain"
)

// UserService manages user account lifecycle.
type UserService struct {
	users domain.UserRepository
	perms *PermissionService
	audit domain.AuditRepository
	admin AdminAccount
}

// NewUserService creates a new UserService.
func NewUserService(users domain.UserRepository, perms *PermissionService, audit domain.AuditRepository, admin AdminAccount) *UserService {
	return &UserService{users: users, perms: perms, audit: audit, admin: admin}
}

// Create registers a new user. Requires meta.admin. The password is
// optional; accounts created without one can only authenticate via a linked
// token. The admin username is reserved even when the account is disabled.
func (s *UserService) Create(ctx context.Context, caller domain.Principal, username, password string) (*domain.User, error) {
	if err := s.requireMetaAdmin(ctx, caller, "user.create"); err != nil {
		return nil, err
	}
	if username == "" {
		return nil, domain.ErrValidation("username is required")
	}
	if s.admin.Username != "" && username == s.admin.Username {
		return nil, domain.ErrConflict("username %q is reserved", username)
	}

	u := &domain.User{Username: username}
	if password != "" {
		var err error
		if u.PasswordHash, u.PasswordSalt, err = HashPassword(password); err != nil {
			return nil, err
		}
	}
	created, err := s.users.Create(ctx, u)
	if err != nil {
		return nil, err
	}
	s.log(ctx, caller, "user.create", username, domain.AuditOK)
	return created, nil
}

// List returns all stored users.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// Delete removes a user account together with its grants and memberships.
// Users may delete themselves; deleting anyone else requires meta.admin.
// The admin account cannot be deleted.
func (s *UserService) Delete(ctx context.Context, caller domain.Principal, target domain.Principal) error {
	if _, ok := target.(domain.Admin); ok {
		return domain.ErrMethodNotAllowed("the admin account cannot be deleted")
	}
	user, ok := target.(*domain.User)
	if !ok {
		return domain.ErrValidation("target is not a user")
	}

	self := false
	if u, ok := caller.(*domain.User); ok && u.ID == user.ID {
		self = true
	}
	if !self {
		if err := s.requireMetaAdmin(ctx, caller, "user.delete"); err != nil {
			return err
		}
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}
	s.log(ctx, caller, "user.delete", user.Username, domain.AuditOK)
	return nil
}

// ChangePassword rotates the caller's own password after verifying the
// current one. Only stored users have a password.
func (s *UserService) ChangePassword(ctx context.Context, caller domain.Principal, current, next string) error {
	if _, ok := caller.(domain.Admin); ok {
		return domain.ErrValidation("the admin password is configured, not stored")
	}
	user, ok := caller.(*domain.User)
	if !ok {
		return domain.ErrValidation("only users have a password")
	}
	if next == "" {
		return domain.ErrValidation("new password is required")
	}
	if !VerifyPassword(current, user.PasswordHash, user.PasswordSalt) {
		s.log(ctx, caller, "user.password", user.Username, domain.AuditDenied)
		return domain.ErrNotAuthorized("current password does not match")
	}
	hash, salt, err := HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
		return err
	}
	s.log(ctx, caller, "user.password", user.Username, domain.AuditOK)
	return nil
}

func (s *UserService) requireMetaAdmin(ctx context.Context, caller domain.Principal, action string) error {
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

func (s *UserService) log(ctx context.Context, caller domain.Principal, action, detail, status string) {
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: domain.PrincipalName(caller),
		Action:    action,
		Detail:    detail,
		Status:    status,
	})
}
