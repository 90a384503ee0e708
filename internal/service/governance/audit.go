// Package governance implements the audit log service and its retention job.
package governance

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"pkgindex/internal/domain"
)

// AuditService provides audit log reads and retention pruning. Writes happen
// at the point of action inside the security services. Listing goes through
// the read pool; pruning deletes rows and stays on the write pool.
type AuditService struct {
	writes domain.AuditRepository
	reads  domain.AuditRepository
	logger *slog.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(writes, reads domain.AuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{writes: writes, reads: reads, logger: logger}
}

// List returns a paginated view of the audit log, newest first. The caller
// is authorized at the API layer.
func (s *AuditService) List(ctx context.Context, page domain.PageRequest) ([]domain.AuditEntry, int64, error) {
	return s.reads.List(ctx, page)
}

// ScheduleRetention registers an hourly job that prunes entries older than
// the retention window. A zero retention disables pruning.
func (s *AuditService) ScheduleRetention(c *cron.Cron, retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	_, err := c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		removed, err := s.writes.PruneBefore(ctx, time.Now().Add(-retention))
		if err != nil {
			s.logger.Error("audit retention prune failed", "error", err)
			return
		}
		if removed > 0 {
			s.logger.Info("pruned audit entries", "removed", removed)
		}
	})
	return err
}
