package repository

import (
	"context"
	"errors"
	"fmt"

	"librarium/internal/api/models"

	"gorm.io/gorm"
)

// MemberFilters narrows down member listings.
type MemberFilters struct {
	Status string // "all", "active", "inactive", "suspended"
	Query  string
}

// MemberWithOverdue is a member row annotated with their overdue-loan count.
type MemberWithOverdue struct {
	models.Member
	OverdueCount int64 `json:"overdue_count"`
}

type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id string) (*models.Member, error)
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	Delete(ctx context.Context, id string) error
	ListWithFilters(ctx context.Context, filters MemberFilters, page, pageSize int) ([]models.Member, int64, error)
	MembersWithOverdue(ctx context.Context) ([]MemberWithOverdue, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

func (r *memberRepository) GetByID(ctx context.Context, id string) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *memberRepository) Update(ctx context.Context, member *models.Member) error {
	if err := r.db.WithContext(ctx).Save(member).Error; err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	return nil
}

func (r *memberRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Member{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *memberRepository) ListWithFilters(ctx context.Context, filters MemberFilters, page, pageSize int) ([]models.Member, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Member{})

	if filters.Status != "" && filters.Status != "all" {
		db = db.Where("status = ?", filters.Status)
	}
	if filters.Query != "" {
		p := "%" + filters.Query + "%"
		db = db.Where("name ILIKE ? OR email ILIKE ? OR phone ILIKE ?", p, p, p)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count members: %w", err)
	}

	var list []models.Member
	if err := db.Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}
	return list, total, nil
}

func (r *memberRepository) MembersWithOverdue(ctx context.Context) ([]MemberWithOverdue, error) {
	var list []MemberWithOverdue
	if err := r.db.WithContext(ctx).
		Table("members m").
		Select("m.*, COUNT(l.id) AS overdue_count").
		Joins("JOIN loans l ON m.id = l.member_id").
		Where("l.returned_at IS NULL AND l.due_date < CURRENT_DATE").
		Group("m.id").
		Order("overdue_count DESC").
		Scan(&list).Error; err != nil {
		return nil, fmt.Errorf("members with overdue loans: %w", err)
	}
	return list, nil
}

func (r *memberRepository) UpdateLastLogin(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.Member{}).
		Where("id = ?", id).
		Update("last_login", gorm.Expr("NOW()")).Error
}
