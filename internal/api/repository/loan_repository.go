package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"librarium/internal/api/models"

	"gorm.io/gorm"
)

// LoanDetail is a loan row joined with its book and member columns, used by
// listing projections.
type LoanDetail struct {
	models.Loan
	BookTitle   string `json:"book_title"`
	BookAuthor  string `json:"book_author"`
	BookISBN    string `json:"book_isbn,omitempty"`
	BookCover   string `json:"book_cover,omitempty"`
	MemberName  string `json:"member_name"`
	MemberEmail string `json:"member_email"`
}

// LoanStats aggregates loan counters for the dashboard.
type LoanStats struct {
	ActiveLoans    int64 `json:"active_loans"`
	OverdueLoans   int64 `json:"overdue_loans"`
	LoansThisMonth int64 `json:"loans_this_month"`
}

type LoanRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Loan, error)
	GetWithDetails(ctx context.Context, id int64) (*models.Loan, error)
	ListWithDetails(ctx context.Context, status string, asOf time.Time, page, pageSize int) ([]LoanDetail, int64, error)
	ListForMember(ctx context.Context, memberID, status string, asOf time.Time, page, pageSize int) ([]LoanDetail, int64, error)
	ListOverdue(ctx context.Context, asOf time.Time, page, pageSize int) ([]LoanDetail, int64, error)
	CountOpenByMember(ctx context.Context, memberID string) (int64, error)
	CountOpenByBook(ctx context.Context, bookID int64) (int64, error)
	Stats(ctx context.Context, asOf time.Time) (*LoanStats, error)

	// CreateLoan inserts the loan row and decrements the book's availability in
	// one transaction. The guarded decrement re-verifies availability; when it
	// fails the insert is rolled back and ErrAvailabilityConflict is returned.
	CreateLoan(ctx context.Context, loan *models.Loan) error

	// ReturnLoan marks the loan returned and increments availability in one
	// transaction.
	ReturnLoan(ctx context.Context, id int64, returnedAt time.Time, fineAmount float64, notes string) error

	// RenewLoan extends the due date by extensionDays from the current due
	// date and appends note to the loan's notes, in one transaction under a
	// row lock so concurrent renewals serialize instead of losing an
	// extension. Returns the updated loan.
	RenewLoan(ctx context.Context, id int64, extensionDays int, note string) (*models.Loan, error)

	// DeleteLoan removes the row; when the loan is still open it first restores
	// the book's availability, all in one transaction.
	DeleteLoan(ctx context.Context, id int64) error
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) GetByID(ctx context.Context, id int64) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).First(&loan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) GetWithDetails(ctx context.Context, id int64) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Member").
		First(&loan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) ListWithDetails(ctx context.Context, status string, asOf time.Time, page, pageSize int) ([]LoanDetail, int64, error) {
	db := r.joined(ctx)
	db = applyStatusFilter(db, status, asOf)
	return r.paginateDetails(db, "l.issue_date DESC", page, pageSize)
}

func (r *loanRepository) ListForMember(ctx context.Context, memberID, status string, asOf time.Time, page, pageSize int) ([]LoanDetail, int64, error) {
	db := r.joined(ctx).Where("l.member_id = ?", memberID)
	db = applyStatusFilter(db, status, asOf)
	return r.paginateDetails(db, "l.issue_date DESC", page, pageSize)
}

func (r *loanRepository) ListOverdue(ctx context.Context, asOf time.Time, page, pageSize int) ([]LoanDetail, int64, error) {
	db := applyStatusFilter(r.joined(ctx), models.LoanStatusOverdue, asOf)
	return r.paginateDetails(db, "l.due_date ASC", page, pageSize)
}

func (r *loanRepository) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("loans l").
		Select(`l.*, b.title AS book_title, b.author AS book_author,
			b.isbn AS book_isbn, b.cover_image AS book_cover,
			m.name AS member_name, m.email AS member_email`).
		Joins("JOIN books b ON l.book_id = b.id").
		Joins("JOIN members m ON l.member_id = m.id")
}

// applyStatusFilter translates a derived loan state into SQL. The asOf date is
// bound as a parameter rather than using the database's CURRENT_DATE so every
// query in one request shares the same reference day.
func applyStatusFilter(db *gorm.DB, status string, asOf time.Time) *gorm.DB {
	day := asOf.Format("2006-01-02")
	switch status {
	case models.LoanStatusActive:
		return db.Where("l.returned_at IS NULL AND l.due_date >= ?", day)
	case models.LoanStatusReturned:
		return db.Where("l.returned_at IS NOT NULL")
	case models.LoanStatusOverdue:
		return db.Where("l.returned_at IS NULL AND l.due_date < ?", day)
	default:
		return db
	}
}

func (r *loanRepository) paginateDetails(db *gorm.DB, order string, page, pageSize int) ([]LoanDetail, int64, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count loans: %w", err)
	}

	var list []LoanDetail
	if err := db.Order(order).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Scan(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list loans: %w", err)
	}
	return list, total, nil
}

func (r *loanRepository) CountOpenByMember(ctx context.Context, memberID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("member_id = ? AND returned_at IS NULL", memberID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count open loans for member: %w", err)
	}
	return count, nil
}

func (r *loanRepository) CountOpenByBook(ctx context.Context, bookID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("book_id = ? AND returned_at IS NULL", bookID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count open loans for book: %w", err)
	}
	return count, nil
}

func (r *loanRepository) Stats(ctx context.Context, asOf time.Time) (*LoanStats, error) {
	stats := &LoanStats{}
	day := asOf.Format("2006-01-02")
	db := r.db.WithContext(ctx).Model(&models.Loan{})

	if err := db.Session(&gorm.Session{}).
		Where("returned_at IS NULL").
		Count(&stats.ActiveLoans).Error; err != nil {
		return nil, fmt.Errorf("count active loans: %w", err)
	}
	if err := db.Session(&gorm.Session{}).
		Where("returned_at IS NULL AND due_date < ?", day).
		Count(&stats.OverdueLoans).Error; err != nil {
		return nil, fmt.Errorf("count overdue loans: %w", err)
	}
	monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
	if err := db.Session(&gorm.Session{}).
		Where("issue_date >= ?", monthStart).
		Count(&stats.LoansThisMonth).Error; err != nil {
		return nil, fmt.Errorf("count loans this month: %w", err)
	}
	return stats, nil
}

func (r *loanRepository) CreateLoan(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(loan).Error; err != nil {
			return fmt.Errorf("create loan: %w", err)
		}
		return adjustAvailability(tx, loan.BookID, -1)
	})
}

func (r *loanRepository) ReturnLoan(ctx context.Context, id int64, returnedAt time.Time, fineAmount float64, notes string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loan models.Loan
		// Row lock so a concurrent double-return observes the first write.
		if err := tx.Clauses(forUpdate()).First(&loan, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if loan.ReturnedAt != nil {
			return ErrNotFound
		}

		updates := map[string]interface{}{
			"returned_at": returnedAt,
			"fine_amount": fineAmount,
		}
		// empty notes keep whatever is already on the loan
		if notes != "" {
			updates["notes"] = notes
		}
		if err := tx.Model(&loan).Updates(updates).Error; err != nil {
			return fmt.Errorf("mark loan returned: %w", err)
		}
		return adjustAvailability(tx, loan.BookID, +1)
	})
}

func (r *loanRepository) RenewLoan(ctx context.Context, id int64, extensionDays int, note string) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock so concurrent renewals read the due date one at a time.
		if err := tx.Clauses(forUpdate()).First(&loan, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if loan.ReturnedAt != nil {
			return ErrNotFound
		}

		loan.DueDate = loan.DueDate.AddDate(0, 0, extensionDays)
		loan.Notes = strings.TrimSpace(loan.Notes + " " + note)

		if err := tx.Model(&models.Loan{}).Where("id = ?", id).
			Updates(map[string]interface{}{
				"due_date": loan.DueDate,
				"notes":    loan.Notes,
			}).Error; err != nil {
			return fmt.Errorf("renew loan: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) DeleteLoan(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loan models.Loan
		if err := tx.Clauses(forUpdate()).First(&loan, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if loan.ReturnedAt == nil {
			if err := adjustAvailability(tx, loan.BookID, +1); err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.Loan{}, id).Error; err != nil {
			return fmt.Errorf("delete loan: %w", err)
		}
		return nil
	})
}
