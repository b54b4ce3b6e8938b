package repository

import (
	"context"
	"fmt"
	"time"

	"librarium/internal/api/models"

	"gorm.io/gorm"
)

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type MonthlyCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int64  `json:"count"`
}

type MonthlyAmount struct {
	Month  string  `json:"month"` // YYYY-MM
	Amount float64 `json:"amount"`
}

type BorrowerCount struct {
	MemberID  string `json:"member_id"`
	Name      string `json:"name"`
	LoanCount int64  `json:"loan_count"`
}

type SystemTotals struct {
	Books          int64   `json:"books"`
	Members        int64   `json:"members"`
	Loans          int64   `json:"loans"`
	ActiveLoans    int64   `json:"active_loans"`
	OverdueLoans   int64   `json:"overdue_loans"`
	FinesCollected float64 `json:"fines_collected"`
}

type AvailabilityTotals struct {
	TotalCopies     int64 `json:"total_copies"`
	AvailableCopies int64 `json:"available_copies"`
	BorrowedCopies  int64 `json:"borrowed_copies"`
}

// SystemStats is the aggregate payload behind the librarian dashboard.
type SystemStats struct {
	BooksByCategory []CategoryCount    `json:"books_by_category"`
	LoansByMonth    []MonthlyCount     `json:"loans_by_month"`
	ActiveBorrowers []BorrowerCount    `json:"active_borrowers"`
	FinesByMonth    []MonthlyAmount    `json:"fines_by_month"`
	Totals          SystemTotals       `json:"totals"`
	Availability    AvailabilityTotals `json:"availability"`
}

// MemberStats is the aggregate payload behind the member dashboard.
type MemberStats struct {
	ActiveLoans  int64        `json:"active_loans"`
	OverdueLoans int64        `json:"overdue_loans"`
	TotalLoans   int64        `json:"total_loans"`
	RecentLoans  []LoanDetail `json:"recent_loans"`
}

type StatsRepository interface {
	SystemStats(ctx context.Context, asOf time.Time) (*SystemStats, error)
	MemberStats(ctx context.Context, memberID string, asOf time.Time) (*MemberStats, error)
}

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) SystemStats(ctx context.Context, asOf time.Time) (*SystemStats, error) {
	stats := &SystemStats{}
	db := r.db.WithContext(ctx)
	day := asOf.Format("2006-01-02")
	yearAgo := asOf.AddDate(-1, 0, 0)

	if err := db.Model(&models.Book{}).
		Select("category, COUNT(*) AS count").
		Group("category").
		Order("count DESC").
		Scan(&stats.BooksByCategory).Error; err != nil {
		return nil, fmt.Errorf("books by category: %w", err)
	}

	if err := db.Model(&models.Loan{}).
		Select("to_char(issue_date, 'YYYY-MM') AS month, COUNT(*) AS count").
		Where("issue_date >= ?", yearAgo).
		Group("month").
		Order("month ASC").
		Scan(&stats.LoansByMonth).Error; err != nil {
		return nil, fmt.Errorf("loans by month: %w", err)
	}

	if err := db.Table("members m").
		Select("m.id AS member_id, m.name, COUNT(l.id) AS loan_count").
		Joins("JOIN loans l ON m.id = l.member_id").
		Group("m.id, m.name").
		Order("loan_count DESC").
		Limit(10).
		Scan(&stats.ActiveBorrowers).Error; err != nil {
		return nil, fmt.Errorf("active borrowers: %w", err)
	}

	if err := db.Model(&models.Loan{}).
		Select("to_char(returned_at, 'YYYY-MM') AS month, SUM(fine_amount) AS amount").
		Where("returned_at IS NOT NULL AND fine_amount > 0 AND returned_at >= ?", yearAgo).
		Group("month").
		Order("month ASC").
		Scan(&stats.FinesByMonth).Error; err != nil {
		return nil, fmt.Errorf("fines by month: %w", err)
	}

	counts := []struct {
		model interface{}
		dest  *int64
	}{
		{&models.Book{}, &stats.Totals.Books},
		{&models.Member{}, &stats.Totals.Members},
		{&models.Loan{}, &stats.Totals.Loans},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("totals: %w", err)
		}
	}
	if err := db.Model(&models.Loan{}).
		Where("returned_at IS NULL").
		Count(&stats.Totals.ActiveLoans).Error; err != nil {
		return nil, fmt.Errorf("active loans total: %w", err)
	}
	if err := db.Model(&models.Loan{}).
		Where("returned_at IS NULL AND due_date < ?", day).
		Count(&stats.Totals.OverdueLoans).Error; err != nil {
		return nil, fmt.Errorf("overdue loans total: %w", err)
	}
	if err := db.Model(&models.Loan{}).
		Select("COALESCE(SUM(fine_amount), 0)").
		Where("fine_amount > 0").
		Scan(&stats.Totals.FinesCollected).Error; err != nil {
		return nil, fmt.Errorf("fines collected: %w", err)
	}

	if err := db.Model(&models.Book{}).
		Select(`COALESCE(SUM(total_copies), 0) AS total_copies,
			COALESCE(SUM(available_copies), 0) AS available_copies,
			COALESCE(SUM(total_copies - available_copies), 0) AS borrowed_copies`).
		Scan(&stats.Availability).Error; err != nil {
		return nil, fmt.Errorf("availability totals: %w", err)
	}

	return stats, nil
}

func (r *statsRepository) MemberStats(ctx context.Context, memberID string, asOf time.Time) (*MemberStats, error) {
	stats := &MemberStats{}
	db := r.db.WithContext(ctx)
	day := asOf.Format("2006-01-02")

	if err := db.Model(&models.Loan{}).
		Where("member_id = ? AND returned_at IS NULL", memberID).
		Count(&stats.ActiveLoans).Error; err != nil {
		return nil, fmt.Errorf("member active loans: %w", err)
	}
	if err := db.Model(&models.Loan{}).
		Where("member_id = ? AND returned_at IS NULL AND due_date < ?", memberID, day).
		Count(&stats.OverdueLoans).Error; err != nil {
		return nil, fmt.Errorf("member overdue loans: %w", err)
	}
	if err := db.Model(&models.Loan{}).
		Where("member_id = ?", memberID).
		Count(&stats.TotalLoans).Error; err != nil {
		return nil, fmt.Errorf("member total loans: %w", err)
	}

	if err := db.Table("loans l").
		Select(`l.*, b.title AS book_title, b.author AS book_author,
			b.isbn AS book_isbn, b.cover_image AS book_cover, '' AS member_name, '' AS member_email`).
		Joins("JOIN books b ON l.book_id = b.id").
		Where("l.member_id = ?", memberID).
		Order("l.issue_date DESC").
		Limit(5).
		Scan(&stats.RecentLoans).Error; err != nil {
		return nil, fmt.Errorf("member recent loans: %w", err)
	}

	return stats, nil
}
