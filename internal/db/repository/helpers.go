// Package repository implements domain repository interfaces using SQLite.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"pkgindex/internal/domain"
)

// mapDBError translates driver errors into domain errors. noun names the
// entity for the caller-facing message.
func mapDBError(err error, noun string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("%s not found", noun)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrConflict("%s already exists", noun)
	}
	return err
}

// projectColumn maps an optional project to its stored form. Server-wide
// grants store the empty string so the unique index can deduplicate them.
func projectColumn(project *string) string {
	if project == nil {
		return ""
	}
	return *project
}

// projectFromColumn is the inverse of projectColumn.
func projectFromColumn(col string) *string {
	if col == "" {
		return nil
	}
	return &col
}
