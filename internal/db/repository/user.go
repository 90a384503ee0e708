package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pkgindex/internal/domain"
)

var _ domain.UserRepository = (*UserRepo)(nil)

// UserRepo implements domain.UserRepository using SQLite.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user account.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u.ID == "" {
		u.ID = domain.NewID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, password_salt) VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.PasswordSalt)
	if err != nil {
		return nil, mapDBError(err, "user")
	}
	return r.GetByID(ctx, u.ID)
}

// GetByID fetches a user and its group memberships.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByUsername fetches a user and its group memberships.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *UserRepo) getBy(ctx context.Context, column, value string) (*domain.User, error) {
	query := fmt.Sprintf(
		`SELECT id, username, password_hash, password_salt, created_at FROM users WHERE %s = ?`, column)
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, value).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.PasswordSalt, &u.CreatedAt)
	if err != nil {
		return nil, mapDBError(err, "user")
	}
	if u.Groups, err = memberGroupIDs(ctx, r.db, "user", u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns all users ordered by username, with group memberships loaded.
func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, password_hash, password_salt, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.PasswordSalt, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Groups, err = memberGroupIDs(ctx, r.db, "user", u.ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// UpdatePassword replaces the stored hash and salt for one user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash, salt string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, password_salt = ? WHERE id = ?`, hash, salt, id)
	if err != nil {
		return mapDBError(err, "user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("user not found")
	}
	return nil
}

// Delete removes a user together with its memberships and direct grants.
// Linked tokens survive; the foreign key clears their link.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err, "user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("user not found")
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM group_members WHERE member_type = 'user' AND member_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM grants WHERE target_type = ? AND target_id = ?`, domain.TargetPrincipal, id); err != nil {
		return err
	}
	return tx.Commit()
}

// memberGroupIDs returns the group ids a user or token belongs to.
func memberGroupIDs(ctx context.Context, db *sql.DB, memberType, memberID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT group_id FROM group_members WHERE member_type = ? AND member_id = ? ORDER BY group_id`,
		memberType, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
