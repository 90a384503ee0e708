package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkgindex/internal/domain"
)

func TestUserCreate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.userSvc.Create(ctx, admin(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotEmpty(t, u.PasswordHash)

	// Non-admin without meta.admin cannot create accounts.
	var denied *domain.NotAuthorizedError
	_, err = f.userSvc.Create(ctx, u, "eve", "pw")
	assert.ErrorAs(t, err, &denied)

	// Duplicate username.
	var conflict *domain.ConflictError
	_, err = f.userSvc.Create(ctx, admin(), "alice", "pw")
	assert.ErrorAs(t, err, &conflict)

	// The admin username is reserved.
	_, err = f.userSvc.Create(ctx, admin(), "root", "pw")
	assert.ErrorAs(t, err, &conflict)
}

func TestUserCreate_WithMetaAdminGrant(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	op := f.newUser(t, "operator")
	f.grant(t, targetOf(t, op), domain.PermMetaAdmin, nil)

	u, err := f.userSvc.Create(ctx, op, "fresh", "")
	require.NoError(t, err)
	assert.Empty(t, u.PasswordHash, "password is optional")
}

func TestUserDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	victim := f.newUser(t, "victim")
	other := f.newUser(t, "other")

	// A plain user cannot delete someone else.
	var denied *domain.NotAuthorizedError
	err := f.userSvc.Delete(ctx, other, victim)
	assert.ErrorAs(t, err, &denied)

	// Self-delete is allowed.
	require.NoError(t, f.userSvc.Delete(ctx, victim, victim))
	_, err = f.users.GetByID(ctx, victim.ID)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	// The admin can delete anyone, but not itself.
	require.NoError(t, f.userSvc.Delete(ctx, admin(), other))
	var mna *domain.MethodNotAllowedError
	err = f.userSvc.Delete(ctx, admin(), admin())
	assert.ErrorAs(t, err, &mna)
}

func TestUserChangePassword(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u := f.newUser(t, "alice")

	var denied *domain.NotAuthorizedError
	err := f.userSvc.ChangePassword(ctx, u, "wrong", "next")
	assert.ErrorAs(t, err, &denied)

	require.NoError(t, f.userSvc.ChangePassword(ctx, u, "alice-pw", "next"))

	_, err = f.identity.Resolve(ctx, Credentials{Username: "alice", Password: "alice-pw"})
	var unauth *domain.UnauthenticatedError
	assert.ErrorAs(t, err, &unauth)
	_, err = f.identity.Resolve(ctx, Credentials{Username: "alice", Password: "next"})
	require.NoError(t, err)

	var verr *domain.ValidationError
	err = f.userSvc.ChangePassword(ctx, admin(), "root-pw", "next")
	assert.ErrorAs(t, err, &verr)
}
