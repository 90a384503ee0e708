package security

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	internaldb "pkgindex/internal/db"
	"pkgindex/internal/db/repository"
	"pkgindex/internal/domain"
)

type fixture struct {
	users    *repository.UserRepo
	tokens   *repository.TokenRepo
	groups   *repository.GroupRepo
	grants   *repository.GrantRepo
	audit    *repository.AuditRepo
	identity *IdentityService
	perms    *PermissionService
	userSvc  *UserService
	tokenSvc *TokenService
	groupSvc *GroupService
}

var testAdmin = AdminAccount{Enabled: true, Username: "root", Password: "root-pw"}

func setup(t *testing.T) *fixture {
	t.Helper()
	writeDB, _ := internaldb.OpenTestSQLite(t)

	f := &fixture{
		users:  repository.NewUserRepo(writeDB),
		tokens: repository.NewTokenRepo(writeDB),
		groups: repository.NewGroupRepo(writeDB),
		grants: repository.NewGrantRepo(writeDB),
		audit:  repository.NewAuditRepo(writeDB),
	}
	f.identity = NewIdentityService(f.users, f.tokens, f.groups, testAdmin)
	f.perms = NewPermissionService(f.grants, f.audit)
	f.userSvc = NewUserService(f.users, f.perms, f.audit, testAdmin)
	f.tokenSvc = NewTokenService(f.tokens, f.perms, f.audit)
	f.groupSvc = NewGroupService(f.groups, f.users, f.tokens, f.perms, f.audit)
	return f
}

func admin() domain.Principal { return domain.Admin{Username: testAdmin.Username} }

// newUser creates a user directly through the repository, bypassing service
// authorization, and reloads it so memberships are fresh.
func (f *fixture) newUser(t *testing.T, username string) *domain.User {
	t.Helper()
	hash, salt, err := HashPassword(username + "-pw")
	require.NoError(t, err)
	u, err := f.users.Create(context.Background(), &domain.User{
		Username:     username,
		PasswordHash: hash,
		PasswordSalt: salt,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) reload(t *testing.T, u *domain.User) *domain.User {
	t.Helper()
	fresh, err := f.users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return fresh
}

func (f *fixture) grant(t *testing.T, target domain.GrantTarget, p domain.Permission, project *string) {
	t.Helper()
	_, err := f.grants.Insert(context.Background(), &domain.Grant{
		Permission: p,
		TargetType: target.Type,
		TargetID:   target.ID,
		Project:    project,
	})
	require.NoError(t, err)
}

func strptr(s string) *string { return &s }

func targetOf(t *testing.T, p domain.Principal) domain.GrantTarget {
	t.Helper()
	target, err := domain.TargetOfPrincipal(p)
	require.NoError(t, err)
	return target
}
