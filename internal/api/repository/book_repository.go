package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"librarium/internal/api/models"

	"gorm.io/gorm"
)

// BookFilters narrows down book listings.
type BookFilters struct {
	Category     string
	Query        string
	Availability string // "all", "available", "unavailable"
}

type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	Update(ctx context.Context, book *models.Book) error
	Delete(ctx context.Context, id int64) error
	ListWithFilters(ctx context.Context, filters BookFilters, page, pageSize int) ([]models.Book, int64, error)
	Search(ctx context.Context, query, category string, availableOnly bool, page, pageSize int) ([]models.Book, int64, error)
	Categories(ctx context.Context) ([]string, error)
	Popular(ctx context.Context, limit int) ([]models.Book, error)
	Recent(ctx context.Context, limit int) ([]models.Book, error)

	// AdjustAvailability applies delta to available_copies, guarded so the
	// result stays inside [0, total_copies]. It is the sole mutator of the
	// counter; every loan and return goes through it. Returns
	// ErrAvailabilityConflict when the guard rejects the adjustment.
	AdjustAvailability(ctx context.Context, bookID int64, delta int) error
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) Update(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Save(book).Error; err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

// Delete removes the book unless open loans still reference it. The check and
// the delete run in one transaction with the book row locked, so a loan
// created concurrently (which locks the same row to decrement availability)
// cannot slip between them.
func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.Clauses(forUpdate()).First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var open int64
		if err := tx.Model(&models.Loan{}).
			Where("book_id = ? AND returned_at IS NULL", id).
			Count(&open).Error; err != nil {
			return fmt.Errorf("count open loans: %w", err)
		}
		if open > 0 {
			return ErrHasOpenLoans
		}

		if err := tx.Delete(&models.Book{}, id).Error; err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
}

func (r *bookRepository) ListWithFilters(ctx context.Context, filters BookFilters, page, pageSize int) ([]models.Book, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Book{})

	if filters.Category != "" {
		db = db.Where("category = ?", filters.Category)
	}
	switch filters.Availability {
	case "available":
		db = db.Where("available_copies > 0")
	case "unavailable":
		db = db.Where("available_copies = 0")
	}
	if filters.Query != "" {
		p := "%" + filters.Query + "%"
		db = db.Where("title ILIKE ? OR author ILIKE ? OR isbn ILIKE ?", p, p, p)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	var list []models.Book
	if err := db.Order("title ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	return list, total, nil
}

// Search performs case-insensitive partial match on title, author, isbn and
// description, optionally narrowed by category and availability.
func (r *bookRepository) Search(ctx context.Context, query, category string, availableOnly bool, page, pageSize int) ([]models.Book, int64, error) {
	fields := []string{"title", "author", "isbn", "description"}
	clauses := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields))
	p := "%" + query + "%"
	for _, f := range fields {
		clauses = append(clauses, fmt.Sprintf("COALESCE(%s,'') ILIKE ?", f))
		args = append(args, p)
	}

	db := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("("+strings.Join(clauses, " OR ")+")", args...)

	if category != "" {
		db = db.Where("category = ?", category)
	}
	if availableOnly {
		db = db.Where("available_copies > 0")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count search results: %w", err)
	}

	var list []models.Book
	if err := db.Order("title ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("search books: %w", err)
	}
	return list, total, nil
}

func (r *bookRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.db.WithContext(ctx).Model(&models.Book{}).
		Distinct("category").
		Where("category <> ''").
		Order("category").
		Pluck("category", &categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Popular returns the most borrowed books.
func (r *bookRepository) Popular(ctx context.Context, limit int) ([]models.Book, error) {
	var list []models.Book
	if err := r.db.WithContext(ctx).
		Table("books b").
		Select("b.*").
		Joins("LEFT JOIN loans l ON b.id = l.book_id").
		Group("b.id").
		Order("COUNT(l.id) DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("popular books: %w", err)
	}
	return list, nil
}

func (r *bookRepository) Recent(ctx context.Context, limit int) ([]models.Book, error) {
	var list []models.Book
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("recent books: %w", err)
	}
	return list, nil
}

func (r *bookRepository) AdjustAvailability(ctx context.Context, bookID int64, delta int) error {
	return adjustAvailability(r.db.WithContext(ctx), bookID, delta)
}

// adjustAvailability runs the guarded counter update against the given handle,
// which may be a transaction. The WHERE clause re-verifies the range inside the
// same statement, so two racing adjustments on the last copy cannot both
// succeed: the row lock serializes them and the loser's guard fails.
func adjustAvailability(db *gorm.DB, bookID int64, delta int) error {
	result := db.Model(&models.Book{}).
		Where("id = ? AND available_copies + ? >= 0 AND available_copies + ? <= total_copies", bookID, delta, delta).
		UpdateColumns(map[string]interface{}{
			"available_copies": gorm.Expr("available_copies + ?", delta),
			"status": gorm.Expr(
				"CASE WHEN available_copies + ? > 0 THEN 'available' ELSE 'unavailable' END", delta),
		})
	if result.Error != nil {
		return fmt.Errorf("adjust availability: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAvailabilityConflict
	}
	return nil
}
