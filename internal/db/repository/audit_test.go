package repository

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "pkgindex/internal/db"
	"pkgindex/internal/domain"
)

func TestAuditRepo_InsertAndList(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewAuditRepo(writeDB)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Insert(ctx, &domain.AuditEntry{
			Principal: "alice",
			Action:    "permission.add",
			Detail:    "pkg.edit on demo",
		}))
	}

	entries, total, err := repo.List(ctx, domain.PageRequest{MaxResults: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Principal)
	assert.Equal(t, domain.AuditOK, entries[0].Status)
	// Newest first.
	assert.Greater(t, entries[0].ID, entries[1].ID)
}

func TestAuditRepo_PruneBefore(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewAuditRepo(writeDB)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &domain.AuditEntry{Principal: "a", Action: "x"}))

	removed, err := repo.PruneBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = repo.PruneBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, total, err := repo.List(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
