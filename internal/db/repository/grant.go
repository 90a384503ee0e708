package repository

import (
	"context"
	"database/sql"
	"strings"

	"pkgindex/internal/domain"
)

var _ domain.GrantRepository = (*GrantRepo)(nil)

// GrantRepo implements domain.GrantRepository using SQLite.
type GrantRepo struct {
	db *sql.DB
}

// NewGrantRepo creates a new GrantRepo.
func NewGrantRepo(db *sql.DB) *GrantRepo {
	return &GrantRepo{db: db}
}

// Insert stores a new grant. A duplicate tuple surfaces as a ConflictError
// from the unique index.
func (r *GrantRepo) Insert(ctx context.Context, g *domain.Grant) (*domain.Grant, error) {
	if g.ID == "" {
		g.ID = domain.NewID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO grants (id, permission, target_type, target_id, project) VALUES (?, ?, ?, ?, ?)`,
		g.ID, string(g.Permission), g.TargetType, g.TargetID, projectColumn(g.Project))
	if err != nil {
		return nil, mapDBError(err, "grant")
	}
	return g, nil
}

// DeleteByTuple removes the grant matching the exact tuple and reports
// whether a row existed.
func (r *GrantRepo) DeleteByTuple(ctx context.Context, targetType, targetID string, p domain.Permission, project *string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM grants WHERE target_type = ? AND target_id = ? AND permission = ? AND project = ?`,
		targetType, targetID, string(p), projectColumn(project))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListForTarget returns the grants held directly by one target.
func (r *GrantRepo) ListForTarget(ctx context.Context, targetType, targetID string) ([]domain.Grant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, permission, target_type, target_id, project FROM grants
		 WHERE target_type = ? AND target_id = ? ORDER BY permission, project`,
		targetType, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrants(rows)
}

// ListForTargets returns the grants held by any of the given targets.
func (r *GrantRepo) ListForTargets(ctx context.Context, targetType string, targetIDs []string) ([]domain.Grant, error) {
	if len(targetIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?, ", len(targetIDs)-1) + "?"
	args := make([]any, 0, len(targetIDs)+1)
	args = append(args, targetType)
	for _, id := range targetIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, permission, target_type, target_id, project FROM grants
		 WHERE target_type = ? AND target_id IN (`+placeholders+`) ORDER BY permission, project`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrants(rows)
}

func scanGrants(rows *sql.Rows) ([]domain.Grant, error) {
	var grants []domain.Grant
	for rows.Next() {
		var g domain.Grant
		var perm, project string
		if err := rows.Scan(&g.ID, &perm, &g.TargetType, &g.TargetID, &project); err != nil {
			return nil, err
		}
		g.Permission = domain.Permission(perm)
		g.Project = projectFromColumn(project)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
