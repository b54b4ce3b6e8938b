package repository

import (
	"context"
	"fmt"

	"librarium/internal/api/models"

	"gorm.io/gorm"
)

// AuditFilters narrows down audit-log listings and exports.
type AuditFilters struct {
	Action    string
	StartDate string // inclusive, YYYY-MM-DD
	EndDate   string // inclusive, YYYY-MM-DD
	UserID    string
}

// AuditEntry is an audit row joined with the acting member, if any.
type AuditEntry struct {
	models.AuditLog
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListWithFilters(ctx context.Context, filters AuditFilters, page, pageSize int) ([]AuditEntry, int64, error)
	ExportRows(ctx context.Context, filters AuditFilters) ([]AuditEntry, error)
	DistinctActions(ctx context.Context) ([]string, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

func (r *auditLogRepository) filtered(ctx context.Context, filters AuditFilters) *gorm.DB {
	db := r.db.WithContext(ctx).
		Table("audit_logs al").
		Select("al.*, COALESCE(m.name, '') AS user_name, COALESCE(m.email, '') AS user_email").
		Joins("LEFT JOIN members m ON al.user_id = m.id")

	if filters.Action != "" {
		db = db.Where("al.action = ?", filters.Action)
	}
	if filters.StartDate != "" {
		db = db.Where("DATE(al.created_at) >= ?", filters.StartDate)
	}
	if filters.EndDate != "" {
		db = db.Where("DATE(al.created_at) <= ?", filters.EndDate)
	}
	if filters.UserID != "" {
		db = db.Where("al.user_id = ?", filters.UserID)
	}
	return db
}

func (r *auditLogRepository) ListWithFilters(ctx context.Context, filters AuditFilters, page, pageSize int) ([]AuditEntry, int64, error) {
	db := r.filtered(ctx, filters)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	var list []AuditEntry
	if err := db.Order("al.created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Scan(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	return list, total, nil
}

func (r *auditLogRepository) ExportRows(ctx context.Context, filters AuditFilters) ([]AuditEntry, error) {
	var list []AuditEntry
	if err := r.filtered(ctx, filters).
		Order("al.created_at DESC").
		Scan(&list).Error; err != nil {
		return nil, fmt.Errorf("export audit logs: %w", err)
	}
	return list, nil
}

func (r *auditLogRepository) DistinctActions(ctx context.Context) ([]string, error) {
	var actions []string
	if err := r.db.WithContext(ctx).Model(&models.AuditLog{}).
		Distinct("action").
		Order("action").
		Pluck("action", &actions).Error; err != nil {
		return nil, fmt.Errorf("list audit actions: %w", err)
	}
	return actions, nil
}
