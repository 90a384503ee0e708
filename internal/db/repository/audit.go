package repository

import (
	"context"
	"database/sql"
	"time"

	"pkgindex/internal/domain"
)

var _ domain.AuditRepository = (*AuditRepo)(nil)

// AuditRepo implements domain.AuditRepository using SQLite.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Insert appends one audit entry.
func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.Status == "" {
		e.Status = domain.AuditOK
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (principal, action, detail, status) VALUES (?, ?, ?, ?)`,
		e.Principal, e.Action, e.Detail, e.Status)
	return err
}

// List returns audit entries newest first, with the total count for paging.
func (r *AuditRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.AuditEntry, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, principal, action, detail, status, created_at FROM audit_log
		 ORDER BY id DESC LIMIT ? OFFSET ?`,
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.Principal, &e.Action, &e.Detail, &e.Status, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// PruneBefore deletes audit entries older than the cutoff and returns the
// number removed.
func (r *AuditRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
