package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"librarium/internal/api/models"
	"librarium/internal/api/repository"
	"librarium/internal/config"
)

// BookInput carries the validated fields of a book write. Each write operation
// gets a typed input instead of filtering arbitrary key/value maps.
type BookInput struct {
	Title         string
	Author        string
	ISBN          string
	PublishedYear int
	Category      string
	Description   string
	ShelfLocation string
	CoverImage    *string // nil keeps the current cover
	TotalCopies   int
}

// CatalogService owns book records and the copy-count invariant:
// 0 <= available_copies <= total_copies at all times.
type CatalogService interface {
	CreateBook(ctx context.Context, in BookInput) (*models.Book, error)
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	UpdateBook(ctx context.Context, id int64, in BookInput) (*models.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	AdjustAvailability(ctx context.Context, bookID int64, delta int) error

	List(ctx context.Context, filters repository.BookFilters, page int) ([]models.Book, int64, error)
	Search(ctx context.Context, query, category string, availableOnly bool, page int) ([]models.Book, int64, error)
	Categories(ctx context.Context) ([]string, error)
	Popular(ctx context.Context, limit int) ([]models.Book, error)
	Recent(ctx context.Context, limit int) ([]models.Book, error)
}

type catalogService struct {
	bookRepo repository.BookRepository
	coverDir string
	pageSize int
	logger   *slog.Logger
}

func NewCatalogService(bookRepo repository.BookRepository, cfg *config.Config, logger *slog.Logger) CatalogService {
	return &catalogService{
		bookRepo: bookRepo,
		coverDir: cfg.CoverDataPath,
		pageSize: cfg.ItemsPerPage,
		logger:   logger,
	}
}

// CreateBook inserts a book with all copies available.
func (s *catalogService) CreateBook(ctx context.Context, in BookInput) (*models.Book, error) {
	book := &models.Book{
		Title:           in.Title,
		Author:          in.Author,
		ISBN:            in.ISBN,
		PublishedYear:   in.PublishedYear,
		Category:        in.Category,
		Description:     in.Description,
		ShelfLocation:   in.ShelfLocation,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
		Status:          models.StatusFor(in.TotalCopies),
	}
	if in.CoverImage != nil {
		book.CoverImage = *in.CoverImage
	}
	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *catalogService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return book, nil
}

// UpdateBook applies the edit. When total_copies changes, currently-loaned
// copies stay unavailable: the new available count is
// max(0, old_available + (new_total - old_total)).
func (s *catalogService) UpdateBook(ctx context.Context, id int64, in BookInput) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	newAvailable := book.AvailableCopies + (in.TotalCopies - book.TotalCopies)
	if newAvailable < 0 {
		newAvailable = 0
	}

	oldCover := book.CoverImage

	book.Title = in.Title
	book.Author = in.Author
	book.ISBN = in.ISBN
	book.PublishedYear = in.PublishedYear
	book.Category = in.Category
	book.Description = in.Description
	book.ShelfLocation = in.ShelfLocation
	book.TotalCopies = in.TotalCopies
	book.AvailableCopies = newAvailable
	book.Status = models.StatusFor(newAvailable)
	if in.CoverImage != nil {
		book.CoverImage = *in.CoverImage
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, err
	}

	if in.CoverImage != nil && oldCover != "" && oldCover != *in.CoverImage {
		s.removeCover(oldCover)
	}
	return book, nil
}

// DeleteBook removes a book that has no open loans, along with its stored
// cover asset.
func (s *catalogService) DeleteBook(ctx context.Context, id int64) error {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	// The repository checks for open loans and deletes in one transaction, so
	// a loan issued between the lookup above and the delete cannot turn into a
	// foreign key violation.
	if err := s.bookRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrHasOpenLoans):
			return ErrHasOpenLoans
		case errors.Is(err, repository.ErrNotFound):
			return ErrNotFound
		}
		return err
	}

	if book.CoverImage != "" {
		s.removeCover(book.CoverImage)
	}
	return nil
}

func (s *catalogService) AdjustAvailability(ctx context.Context, bookID int64, delta int) error {
	err := s.bookRepo.AdjustAvailability(ctx, bookID, delta)
	if errors.Is(err, repository.ErrAvailabilityConflict) {
		return ErrBookUnavailable
	}
	return err
}

func (s *catalogService) List(ctx context.Context, filters repository.BookFilters, page int) ([]models.Book, int64, error) {
	return s.bookRepo.ListWithFilters(ctx, filters, normalizePage(page), s.pageSize)
}

func (s *catalogService) Search(ctx context.Context, query, category string, availableOnly bool, page int) ([]models.Book, int64, error) {
	return s.bookRepo.Search(ctx, query, category, availableOnly, normalizePage(page), s.pageSize)
}

func (s *catalogService) Categories(ctx context.Context) ([]string, error) {
	return s.bookRepo.Categories(ctx)
}

func (s *catalogService) Popular(ctx context.Context, limit int) ([]models.Book, error) {
	return s.bookRepo.Popular(ctx, limit)
}

func (s *catalogService) Recent(ctx context.Context, limit int) ([]models.Book, error) {
	return s.bookRepo.Recent(ctx, limit)
}

func (s *catalogService) removeCover(name string) {
	path := filepath.Join(s.coverDir, filepath.Base(name))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove cover image", "path", path, "error", err)
	}
}
