package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pkgindex/internal/domain"
)

var _ domain.GroupRepository = (*GroupRepo)(nil)

// GroupRepo implements domain.GroupRepository using SQLite.
type GroupRepo struct {
	db *sql.DB
}

// NewGroupRepo creates a new GroupRepo.
func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// Create inserts a new group.
func (r *GroupRepo) Create(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	if g.ID == "" {
		g.ID = domain.NewID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, display_name) VALUES (?, ?, ?)`,
		g.ID, g.Name, g.DisplayName)
	if err != nil {
		return nil, mapDBError(err, "group")
	}
	return r.GetByID(ctx, g.ID)
}

// GetByID fetches a group by id.
func (r *GroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	return r.getBy(ctx, "id", id)
}

// GetByName fetches a group by name.
func (r *GroupRepo) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	return r.getBy(ctx, "name", name)
}

func (r *GroupRepo) getBy(ctx context.Context, column, value string) (*domain.Group, error) {
	query := fmt.Sprintf(`SELECT id, name, display_name, created_at FROM groups WHERE %s = ?`, column)
	g := &domain.Group{}
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&g.ID, &g.Name, &g.DisplayName, &g.CreatedAt)
	if err != nil {
		return nil, mapDBError(err, "group")
	}
	return g, nil
}

// GetByIDs fetches the groups for a set of ids, ordered by name. Missing ids
// are silently skipped.
func (r *GroupRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, display_name, created_at FROM groups WHERE id IN (`+placeholders+`) ORDER BY name`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGroups(rows)
}

// List returns all groups ordered by name.
func (r *GroupRepo) List(ctx context.Context) ([]domain.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, display_name, created_at FROM groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGroups(rows)
}

// Delete removes a group together with its memberships and grants.
func (r *GroupRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err, "group")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("group not found")
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM grants WHERE target_type = ? AND target_id = ?`, domain.TargetGroup, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AddMember adds a user or token to a group. Adding an existing member is a
// no-op.
func (r *GroupRepo) AddMember(ctx context.Context, groupID, memberType, memberID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members (group_id, member_type, member_id) VALUES (?, ?, ?)`,
		groupID, memberType, memberID)
	return mapDBError(err, "membership")
}

// RemoveMember removes a user or token from a group. Removing an absent
// member is a no-op.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, memberType, memberID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND member_type = ? AND member_id = ?`,
		groupID, memberType, memberID)
	return err
}

// IDsForMember returns the group ids a user or token belongs to.
func (r *GroupRepo) IDsForMember(ctx context.Context, memberType, memberID string) ([]string, error) {
	return memberGroupIDs(ctx, r.db, memberType, memberID)
}

// Members returns all memberships of a group.
func (r *GroupRepo) Members(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT member_type, member_id FROM group_members WHERE group_id = ? ORDER BY member_type, member_id`,
		groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.GroupMember
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.MemberType, &m.MemberID); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanGroups(rows *sql.Rows) ([]domain.Group, error) {
	var groups []domain.Group
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.DisplayName, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
