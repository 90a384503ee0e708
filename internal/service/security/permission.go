package security

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pkgindex/internal/domain"
)

// PermissionService evaluates effective permissions and mutates grants.
type PermissionService struct {
	grants domain.GrantRepository
	audit  domain.AuditRepository
	locks  sync.Map // target key -> *sync.Mutex
}

// NewPermissionService creates a new PermissionService.
func NewPermissionService(grants domain.GrantRepository, audit domain.AuditRepository) *PermissionService {
	return &PermissionService{grants: grants, audit: audit}
}

// Has evaluates whether the caller holds a permission. The admin passes every
// check; anonymous callers fail every check. For everyone else the effective
// set is direct grants plus grants on any group the principal belongs to.
func (s *PermissionService) Has(ctx context.Context, caller domain.Principal, p domain.Permission, project *string) (bool, error) {
	if _, ok := caller.(domain.Admin); ok {
		return true, nil
	}
	perm, ok := caller.(domain.Permissioned)
	if !ok {
		return false, nil
	}
	target := domain.GrantTarget{Type: domain.TargetPrincipal, ID: perm.PrincipalID(), GroupIDs: perm.GroupIDs()}
	effective, err := s.effective(ctx, target)
	if err != nil {
		return false, err
	}
	for _, g := range effective {
		if g.Matches(p, project) {
			return true, nil
		}
	}
	return false, nil
}

// Add grants (permission, project) to a target after validating the spec and
// authorizing the caller. Granting a permission the target already holds
// directly is idempotent. Returns the target's effective permission set.
func (s *PermissionService) Add(ctx context.Context, caller domain.Principal, target domain.GrantTarget, spec domain.PermissionSpec) ([]domain.PermissionSpec, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if target.Type == domain.TargetPrincipal && target.ID == domain.AdminID {
		return nil, domain.ErrMethodNotAllowed("the admin already holds every permission")
	}
	if err := s.authorizeGrant(ctx, caller, spec); err != nil {
		return nil, err
	}

	mu := s.lockFor(target)
	mu.Lock()
	defer mu.Unlock()

	direct, err := s.grants.ListForTarget(ctx, target.Type, target.ID)
	if err != nil {
		return nil, err
	}
	held := false
	for _, g := range direct {
		if g.Permission == spec.Permission && equalProject(g.Project, spec.Project) {
			held = true
			break
		}
	}
	if !held {
		_, err = s.grants.Insert(ctx, &domain.Grant{
			Permission: spec.Permission,
			TargetType: target.Type,
			TargetID:   target.ID,
			Project:    spec.Project,
		})
		var conflict *domain.ConflictError
		switch {
		case err == nil:
			s.logAudit(ctx, caller, "permission.add", fmt.Sprintf("%s to %s %s", specString(spec), target.Type, target.ID))
		case errors.As(err, &conflict):
			// Another writer (a second process; the keyed lock only covers
			// this one) inserted the tuple between the check and the insert.
			// The grant exists, which is all a duplicate add promises.
		default:
			return nil, err
		}
	}
	return s.List(ctx, target, nil)
}

// Remove revokes the grant matching the exact (permission, project) tuple on
// the target. Revoking an absent grant is a no-op; inherited group grants
// are never touched. Returns the target's effective permission set.
func (s *PermissionService) Remove(ctx context.Context, caller domain.Principal, target domain.GrantTarget, spec domain.PermissionSpec) ([]domain.PermissionSpec, error) {
	if !spec.Permission.Valid() {
		return nil, domain.ErrValidation("unknown permission %q", spec.Permission)
	}
	if target.Type == domain.TargetPrincipal && target.ID == domain.AdminID {
		return nil, domain.ErrMethodNotAllowed("the admin's permissions cannot be changed")
	}
	if err := s.authorizeGrant(ctx, caller, spec); err != nil {
		return nil, err
	}

	removed, err := s.grants.DeleteByTuple(ctx, target.Type, target.ID, spec.Permission, spec.Project)
	if err != nil {
		return nil, err
	}
	if removed {
		s.logAudit(ctx, caller, "permission.remove", fmt.Sprintf("%s from %s %s", specString(spec), target.Type, target.ID))
	}
	return s.List(ctx, target, nil)
}

// List returns the target's effective permission set, optionally filtered to
// grants relevant to one project (meta grants always qualify).
func (s *PermissionService) List(ctx context.Context, target domain.GrantTarget, project *string) ([]domain.PermissionSpec, error) {
	effective, err := s.effective(ctx, target)
	if err != nil {
		return nil, err
	}
	specs := make([]domain.PermissionSpec, 0, len(effective))
	for _, g := range effective {
		if project != nil && !g.Permission.IsMeta() && (g.Project == nil || *g.Project != *project) {
			continue
		}
		specs = append(specs, g.Spec())
	}
	return specs, nil
}

// authorizeGrant checks the caller may change a grant: meta permissions
// require meta.admin, package permissions require pkg.manage on the same
// project.
func (s *PermissionService) authorizeGrant(ctx context.Context, caller domain.Principal, spec domain.PermissionSpec) error {
	if spec.Permission.IsMeta() {
		ok, err := s.Has(ctx, caller, domain.PermMetaAdmin, nil)
		if err != nil {
			return err
		}
		if !ok {
			s.logDenied(ctx, caller, "permission.change", specString(spec))
			return domain.ErrNotAuthorized("changing %s requires %s", spec.Permission, domain.PermMetaAdmin)
		}
		return nil
	}
	ok, err := s.Has(ctx, caller, domain.PermPkgManage, spec.Project)
	if err != nil {
		return err
	}
	if !ok {
		s.logDenied(ctx, caller, "permission.change", specString(spec))
		return domain.ErrNotAuthorized("changing %s requires %s on the same project", spec.Permission, domain.PermPkgManage)
	}
	return nil
}

func (s *PermissionService) effective(ctx context.Context, target domain.GrantTarget) ([]domain.Grant, error) {
	direct, err := s.grants.ListForTarget(ctx, target.Type, target.ID)
	if err != nil {
		return nil, err
	}
	if len(target.GroupIDs) == 0 {
		return direct, nil
	}
	inherited, err := s.grants.ListForTargets(ctx, domain.TargetGroup, target.GroupIDs)
	if err != nil {
		return nil, err
	}
	return append(direct, inherited...), nil
}

// lockFor returns the mutex serializing grant mutations on one target, so
// concurrent duplicate adds collapse to a single insert.
func (s *PermissionService) lockFor(target domain.GrantTarget) *sync.Mutex {
	key := target.Type + ":" + target.ID
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *PermissionService) logAudit(ctx context.Context, caller domain.Principal, action, detail string) {
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: domain.PrincipalName(caller),
		Action:    action,
		Detail:    detail,
	})
}

func (s *PermissionService) logDenied(ctx context.Context, caller domain.Principal, action, detail string) {
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: domain.PrincipalName(caller),
		Action:    action,
		Detail:    detail,
		Status:    domain.AuditDenied,
	})
}

func equalProject(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func specString(spec domain.PermissionSpec) string {
	if spec.Project != nil {
		return string(spec.Permission) + " on " + *spec.Project
	}
	return string(spec.Permission)
}
