package security

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkgindex/internal/domain"
)

func TestPermissionHas_AdminBypassesEverything(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, p := range []domain.Permission{domain.PermMetaAdmin, domain.PermPkgView} {
		ok, err := f.perms.Has(ctx, admin(), p, strptr("any"))
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestPermissionHas_AnonymousAlwaysFails(t *testing.T) {
	f := setup(t)

	ok, err := f.perms.Has(context.Background(), domain.Anonymous{}, domain.PermPkgView, strptr("demo"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionHas_DirectAndInherited(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.newUser(t, "alice")
	f.grant(t, targetOf(t, u), domain.PermPkgEdit, strptr("demo"))

	g, err := f.groups.Create(ctx, &domain.Group{Name: "readers"})
	require.NoError(t, err)
	require.NoError(t, f.groups.AddMember(ctx, g.ID, "user", u.ID))
	f.grant(t, domain.TargetOfGroup(g), domain.PermPkgView, strptr("demo"))

	u = f.reload(t, u)

	ok, err := f.perms.Has(ctx, u, domain.PermPkgEdit, strptr("demo"))
	require.NoError(t, err)
	assert.True(t, ok, "direct grant")

	ok, err = f.perms.Has(ctx, u, domain.PermPkgView, strptr("demo"))
	require.NoError(t, err)
	assert.True(t, ok, "grant inherited through group membership")

	ok, err = f.perms.Has(ctx, u, domain.PermPkgEdit, strptr("other"))
	require.NoError(t, err)
	assert.False(t, ok, "package grants are scoped to their project")

	ok, err = f.perms.Has(ctx, u, domain.PermPkgManage, strptr("demo"))
	require.NoError(t, err)
	assert.False(t, ok, "permissions never imply one another")
}

func TestPermissionHas_MetaIgnoresProjectArgument(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.newUser(t, "bob")
	f.grant(t, targetOf(t, u), domain.PermMetaCreate, nil)

	ok, err := f.perms.Has(ctx, u, domain.PermMetaCreate, strptr("demo"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPermissionAdd_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.newUser(t, "carol")
	target := targetOf(t, u)

	var verr *domain.ValidationError
	_, err := f.perms.Add(ctx, admin(), target, domain.PermissionSpec{Permission: domain.PermPkgEdit})
	assert.ErrorAs(t, err, &verr, "package permission without project")

	_, err = f.perms.Add(ctx, admin(), target, domain.PermissionSpec{Permission: domain.PermMetaAdmin, Project: strptr("demo")})
	assert.ErrorAs(t, err, &verr, "meta permission with project")

	_, err = f.perms.Add(ctx, admin(), target, domain.PermissionSpec{Permission: "pkg.nope", Project: strptr("demo")})
	assert.ErrorAs(t, err, &verr, "unknown permission")
}

func TestPermissionAdd_AdminTargetRejected(t *testing.T) {
	f := setup(t)

	target := targetOf(t, admin())
	_, err := f.perms.Add(context.Background(), admin(), target, domain.PermissionSpec{Permission: domain.PermMetaCreate})
	var mna *domain.MethodNotAllowedError
	assert.ErrorAs(t, err, &mna)

	_, err = f.perms.Remove(context.Background(), admin(), target, domain.PermissionSpec{Permission: domain.PermMetaCreate})
	assert.ErrorAs(t, err, &mna)
}

func TestPermissionAdd_Authorization(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	manager := f.newUser(t, "manager")
	f.grant(t, targetOf(t, manager), domain.PermPkgManage, strptr("demo"))
	manager = f.reload(t, manager)

	subject := f.newUser(t, "subject")
	target := targetOf(t, subject)

	// pkg.manage on the same project allows granting package permissions.
	_, err := f.perms.Add(ctx, manager, target, domain.PermissionSpec{Permission: domain.PermPkgEdit, Project: strptr("demo")})
	require.NoError(t, err)

	// But not on another project.
	var denied *domain.NotAuthorizedError
	_, err = f.perms.Add(ctx, manager, target, domain.PermissionSpec{Permission: domain.PermPkgEdit, Project: strptr("other")})
	assert.ErrorAs(t, err, &denied)

	// And never meta permissions.
	_, err = f.perms.Add(ctx, manager, target, domain.PermissionSpec{Permission: domain.PermMetaCreate})
	assert.ErrorAs(t, err, &denied)

	// meta.admin allows granting meta permissions without being the admin.
	granter := f.newUser(t, "granter")
	f.grant(t, targetOf(t, granter), domain.PermMetaAdmin, nil)
	granter = f.reload(t, granter)
	_, err = f.perms.Add(ctx, granter, target, domain.PermissionSpec{Permission: domain.PermMetaCreate})
	require.NoError(t, err)
}

func TestPermissionAdd_IdempotentAgainstDirectGrants(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.newUser(t, "dave")
	target := targetOf(t, u)
	spec := domain.PermissionSpec{Permission: domain.PermPkgEdit, Project: strptr("demo")}

	first, err := f.perms.Add(ctx, admin(), target, spec)
	require.NoError(t, err)
	second, err := f.perms.Add(ctx, admin(), target, spec)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	held, err := f.grants.ListForTarget(ctx, target.Type, target.ID)
	require.NoError(t, err)
	assert.Len(t, held, 1)
}

func TestPermissionAdd_GroupGrantDoesNotBlockDirectGrant(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.newUser(t, "erin")
	g, err := f.groups.Create(ctx, &domain.Group{Name: "editors"})
	require.NoError(t, err)
	require.NoError(t, f.groups.AddMember(ctx, g.ID, "user", u.ID))
	f.grant(t, domain.TargetOfGroup(g), domain.PermPkgEdit, strptr("demo"))
	u = f.reload(t, u)

	// Idempotence only considers direct grants; the inherited grant does not
	// suppress the insert.
	target := targetOf(t, u)
	_, err = f.perms.Add(ctx, admin(), target, domain.PermissionSpec{Permission: domain.PermPkgEdit, Project: strptr("demo")})
	require.NoError(t, err)

	direct, err := f.grants.ListForTarget(ctx, domain.TargetPrincipal, u.ID)
	require.NoError(t, err)
	assert.Len(t, direct, 1)
}

func TestPermissionAdd_ConcurrentDuplicates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.newUser(t, "frank")
	target := targetOf(t, u)
	spec := domain.PermissionSpec{Permission: domain.PermPkgView, Project: strptr("demo")}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.perms.Add(ctx, admin(), target, spec)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	held, err := f.grants.ListForTarget(ctx, target.Type, target.ID)
	require.NoError(t, err)
	assert.Len(t, held, 1)
}

// staleGrantRepo hides existing rows from the first n ListForTarget calls,
// reproducing the window where another process inserts the same tuple
// between the duplicate check and the insert. The keyed lock only serializes
// writers inside one process.
type staleGrantRepo struct {
	domain.GrantRepository
	stale int32
}

func (r *staleGrantRepo) ListForTarget(ctx context.Context, targetType, targetID string) ([]domain.Grant, error) {
	if atomic.AddInt32(&r.stale, -1) >= 0 {
		return nil, nil
	}
	return r.GrantRepository.ListForTarget(ctx, targetType, targetID)
}

func TestPermissionAdd_CrossProcessDuplicateIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.newUser(t, "grace")
	target := targetOf(t, u)
	spec := domain.PermissionSpec{Permission: domain.PermPkgEdit, Project: strptr("demo")}

	// The other writer's row is already committed, but this writer's
	// duplicate check ran before it landed.
	f.grant(t, target, domain.PermPkgEdit, strptr("demo"))
	perms := NewPermissionService(&staleGrantRepo{GrantRepository: f.grants, stale: 1}, f.audit)

	effective, err := perms.Add(ctx, admin(), target, spec)
	require.NoError(t, err, "a lost race reports idempotent success, not Conflict")
	assert.Equal(t, []domain.PermissionSpec{spec}, effective)

	held, err := f.grants.ListForTarget(ctx, target.Type, target.ID)
	require.NoError(t, err)
	assert.Len(t, held, 1)
}

func TestPermissionRemove(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.newUser(t, "gina")
	target := targetOf(t, u)
	spec := domain.PermissionSpec{Permission: domain.PermPkgEdit, Project: strptr("demo")}

	_, err := f.perms.Add(ctx, admin(), target, spec)
	require.NoError(t, err)

	left, err := f.perms.Remove(ctx, admin(), target, spec)
	require.NoError(t, err)
	assert.Empty(t, left)

	// Removing an absent grant is a no-op.
	left, err = f.perms.Remove(ctx, admin(), target, spec)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestPermissionRemove_DoesNotTouchGroupGrants(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.newUser(t, "hana")
	g, err := f.groups.Create(ctx, &domain.Group{Name: "viewers"})
	require.NoError(t, err)
	require.NoError(t, f.groups.AddMember(ctx, g.ID, "user", u.ID))
	f.grant(t, domain.TargetOfGroup(g), domain.PermPkgView, strptr("demo"))
	u = f.reload(t, u)

	target := targetOf(t, u)
	left, err := f.perms.Remove(ctx, admin(), target, domain.PermissionSpec{Permission: domain.PermPkgView, Project: strptr("demo")})
	require.NoError(t, err)
	// The inherited grant is still effective.
	assert.Len(t, left, 1)

	ok, err := f.perms.Has(ctx, u, domain.PermPkgView, strptr("demo"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPermissionList_ProjectFilter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.newUser(t, "ivan")
	target := targetOf(t, u)
	f.grant(t, target, domain.PermMetaCreate, nil)
	f.grant(t, target, domain.PermPkgEdit, strptr("demo"))
	f.grant(t, target, domain.PermPkgEdit, strptr("other"))

	all, err := f.perms.List(ctx, target, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := f.perms.List(ctx, target, strptr("demo"))
	require.NoError(t, err)
	require.Len(t, filtered, 2)
	// Meta grants always qualify; package grants only on the exact project.
	for _, spec := range filtered {
		if spec.Permission.IsPackage() {
			assert.Equal(t, "demo", *spec.Project)
		}
	}
}
