package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"time"

	"librarium/internal/api/models"
	"librarium/internal/api/repository"
	"librarium/internal/config"
)

// AuditService is the append-only action log: every notable admin or auth
// action lands in the audit_logs table and as a structured log line.
type AuditService interface {
	Log(ctx context.Context, actor ActorContext, action, details string)
	List(ctx context.Context, filters repository.AuditFilters, page int) ([]repository.AuditEntry, int64, error)
	Actions(ctx context.Context) ([]string, error)
	ExportCSV(ctx context.Context, filters repository.AuditFilters) ([]byte, error)
}

type auditService struct {
	auditRepo repository.AuditLogRepository
	pageSize  int
	logger    *slog.Logger
}

func NewAuditService(auditRepo repository.AuditLogRepository, cfg *config.Config, logger *slog.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		pageSize:  cfg.ItemsPerPage,
		logger:    logger,
	}
}

// Log records the action. Failures are logged and swallowed: auditing must
// never fail the operation being audited.
func (s *auditService) Log(ctx context.Context, actor ActorContext, action, details string) {
	entry := &models.AuditLog{
		Action:    action,
		Details:   details,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if actor.UserID != "" {
		userID := actor.UserID
		entry.UserID = &userID
	}

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to persist audit entry", "action", action, "error", err)
	}

	s.logger.Info("audit",
		"action", action,
		"details", details,
		"user_id", actor.UserID,
		"ip", actor.IP,
	)
}

func (s *auditService) List(ctx context.Context, filters repository.AuditFilters, page int) ([]repository.AuditEntry, int64, error) {
	return s.auditRepo.ListWithFilters(ctx, filters, normalizePage(page), s.pageSize)
}

func (s *auditService) Actions(ctx context.Context) ([]string, error) {
	return s.auditRepo.DistinctActions(ctx)
}

// ExportCSV renders the filtered log as a CSV document for download.
func (s *auditService) ExportCSV(ctx context.Context, filters repository.AuditFilters) ([]byte, error) {
	rows, err := s.auditRepo.ExportRows(ctx, filters)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"ID", "Timestamp", "User", "Email", "Action", "Details", "IP Address"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		name := row.UserName
		if name == "" {
			name = "Guest"
		}
		record := []string{
			fmt.Sprintf("%d", row.ID),
			row.CreatedAt.Format(time.DateTime),
			name,
			row.UserEmail,
			row.Action,
			row.Details,
			row.IPAddress,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
