package repository

import (
	"context"
	"database/sql"

	"pkgindex/internal/domain"
)

var _ domain.TokenRepository = (*TokenRepo)(nil)

// TokenRepo implements domain.TokenRepository using SQLite.
type TokenRepo struct {
	db *sql.DB
}

// NewTokenRepo creates a new TokenRepo.
func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// Create inserts a new bearer token.
func (r *TokenRepo) Create(ctx context.Context, t *domain.Token) (*domain.Token, error) {
	if t.ID == "" {
		t.ID = domain.NewID()
	}
	linked := sql.NullString{}
	if t.LinkedUser != nil {
		linked = sql.NullString{String: *t.LinkedUser, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tokens (id, secret, description, linked_user) VALUES (?, ?, ?, ?)`,
		t.ID, t.Secret, t.Description, linked)
	if err != nil {
		return nil, mapDBError(err, "token")
	}
	return r.GetByID(ctx, t.ID)
}

// GetByID fetches a token and its group memberships.
func (r *TokenRepo) GetByID(ctx context.Context, id string) (*domain.Token, error) {
	return r.getWhere(ctx, `id = ?`, id)
}

// GetBySecret fetches a token by its secret value.
func (r *TokenRepo) GetBySecret(ctx context.Context, secret string) (*domain.Token, error) {
	return r.getWhere(ctx, `secret = ?`, secret)
}

func (r *TokenRepo) getWhere(ctx context.Context, where string, arg any) (*domain.Token, error) {
	t := &domain.Token{}
	linked := sql.NullString{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, secret, description, linked_user, created_at FROM tokens WHERE `+where, arg).
		Scan(&t.ID, &t.Secret, &t.Description, &linked, &t.CreatedAt)
	if err != nil {
		return nil, mapDBError(err, "token")
	}
	if linked.Valid {
		t.LinkedUser = &linked.String
	}
	if t.Groups, err = memberGroupIDs(ctx, r.db, "token", t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// ListForUser returns the tokens linked to one user, newest first.
func (r *TokenRepo) ListForUser(ctx context.Context, userID string) ([]*domain.Token, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, secret, description, linked_user, created_at FROM tokens
		 WHERE linked_user = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		t := &domain.Token{}
		linked := sql.NullString{}
		if err := rows.Scan(&t.ID, &t.Secret, &t.Description, &linked, &t.CreatedAt); err != nil {
			return nil, err
		}
		if linked.Valid {
			t.LinkedUser = &linked.String
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, t := range tokens {
		if t.Groups, err = memberGroupIDs(ctx, r.db, "token", t.ID); err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

// Delete removes a token together with its memberships and direct grants.
func (r *TokenRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err, "token")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("token not found")
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM group_members WHERE member_type = 'token' AND member_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM grants WHERE target_type = ? AND target_id = ?`, domain.TargetPrincipal, id); err != nil {
		return err
	}
	return tx.Commit()
}
