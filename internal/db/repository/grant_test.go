package repository

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkgindex/internal/domain"
)

func strptr(s string) *string { return &s }

func TestGrantRepo_InsertAndList(t *testing.T) {
	_, _, _, grants := setupRepos(t)
	ctx := context.Background()

	_, err := grants.Insert(ctx, &domain.Grant{
		Permission: domain.PermPkgEdit,
		TargetType: domain.TargetPrincipal,
		TargetID:   "p1",
		Project:    strptr("demo"),
	})
	require.NoError(t, err)

	_, err = grants.Insert(ctx, &domain.Grant{
		Permission: domain.PermMetaAdmin,
		TargetType: domain.TargetPrincipal,
		TargetID:   "p1",
	})
	require.NoError(t, err)

	held, err := grants.ListForTarget(ctx, domain.TargetPrincipal, "p1")
	require.NoError(t, err)
	require.Len(t, held, 2)
	assert.Equal(t, domain.PermMetaAdmin, held[0].Permission)
	assert.Nil(t, held[0].Project)
	assert.Equal(t, domain.PermPkgEdit, held[1].Permission)
	require.NotNil(t, held[1].Project)
	assert.Equal(t, "demo", *held[1].Project)
}

func TestGrantRepo_DuplicateTuple(t *testing.T) {
	_, _, _, grants := setupRepos(t)
	ctx := context.Background()

	g := &domain.Grant{
		Permission: domain.PermMetaCreate,
		TargetType: domain.TargetPrincipal,
		TargetID:   "p1",
	}
	_, err := grants.Insert(ctx, g)
	require.NoError(t, err)

	// Server-wide grants have no project; the unique index must still
	// collapse duplicates.
	_, err = grants.Insert(ctx, &domain.Grant{
		Permission: domain.PermMetaCreate,
		TargetType: domain.TargetPrincipal,
		TargetID:   "p1",
	})
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestGrantRepo_DeleteByTuple(t *testing.T) {
	_, _, _, grants := setupRepos(t)
	ctx := context.Background()

	_, err := grants.Insert(ctx, &domain.Grant{
		Permission: domain.PermPkgView,
		TargetType: domain.TargetGroup,
		TargetID:   "g1",
		Project:    strptr("demo"),
	})
	require.NoError(t, err)

	// Wrong project: nothing removed.
	removed, err := grants.DeleteByTuple(ctx, domain.TargetGroup, "g1", domain.PermPkgView, strptr("other"))
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = grants.DeleteByTuple(ctx, domain.TargetGroup, "g1", domain.PermPkgView, strptr("demo"))
	require.NoError(t, err)
	assert.True(t, removed)

	// Absent tuple: no-op.
	removed, err = grants.DeleteByTuple(ctx, domain.TargetGroup, "g1", domain.PermPkgView, strptr("demo"))
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestGrantRepo_ListForTargets(t *testing.T) {
	_, _, _, grants := setupRepos(t)
	ctx := context.Background()

	for _, id := range []string{"g1", "g2"} {
		_, err := grants.Insert(ctx, &domain.Grant{
			Permission: domain.PermPkgEdit,
			TargetType: domain.TargetGroup,
			TargetID:   id,
			Project:    strptr("demo"),
		})
		require.NoError(t, err)
	}

	held, err := grants.ListForTargets(ctx, domain.TargetGroup, []string{"g1", "g2", "g3"})
	require.NoError(t, err)
	assert.Len(t, held, 2)

	held, err = grants.ListForTargets(ctx, domain.TargetGroup, nil)
	require.NoError(t, err)
	assert.Empty(t, held)
}
