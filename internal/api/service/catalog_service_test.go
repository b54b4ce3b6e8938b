package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"librarium/internal/api/models"
	"librarium/internal/api/repository"
	"librarium/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestCatalogService(bookRepo repository.BookRepository, t *testing.T) CatalogService {
	cfg := &config.Config{
		CoverDataPath: t.TempDir(),
		ItemsPerPage:  10,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCatalogService(bookRepo, cfg, logger)
}

func TestCreateBook_AllCopiesAvailable(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newTestCatalogService(mockBookRepo, t)

	mockBookRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Book")).Return(nil)

	book, err := svc.CreateBook(context.Background(), BookInput{
		Title: "Dune", Author: "Frank Herbert", ISBN: "9780441172719", TotalCopies: 4,
	})

	require.NoError(t, err)
	assert.Equal(t, 4, book.TotalCopies)
	assert.Equal(t, 4, book.AvailableCopies)
	assert.Equal(t, models.BookStatusAvailable, book.Status)
}

func TestCreateBook_ZeroCopies(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newTestCatalogService(mockBookRepo, t)

	mockBookRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Book")).Return(nil)

	book, err := svc.CreateBook(context.Background(), BookInput{Title: "Rare", Author: "N", TotalCopies: 0})

	require.NoError(t, err)
	assert.Equal(t, models.BookStatusUnavailable, book.Status)
}

func TestUpdateBook_GrowingTotalGrowsAvailable(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newTestCatalogService(mockBookRepo, t)

	mockBookRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Book{
		ID: 1, Title: "Dune", TotalCopies: 3, AvailableCopies: 1,
	}, nil)
	mockBookRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Book")).Return(nil)

	book, err := svc.UpdateBook(context.Background(), 1, BookInput{
		Title: "Dune", Author: "Frank Herbert", TotalCopies: 5,
	})

	require.NoError(t, err)
	assert.Equal(t, 5, book.TotalCopies)
	assert.Equal(t, 3, book.AvailableCopies)
}

func TestUpdateBook_ShrinkingTotalClampsAtZero(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newTestCatalogService(mockBookRepo, t)

	// 5 total, 1 available: 4 copies are out on loan. Shrinking the total to 2
	// cannot recall them, so available bottoms out at zero.
	mockBookRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Book{
		ID: 1, Title: "Dune", TotalCopies: 5, AvailableCopies: 1,
	}, nil)
	mockBookRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Book")).Return(nil)

	book, err := svc.UpdateBook(context.Background(), 1, BookInput{
		Title: "Dune", Author: "Frank Herbert", TotalCopies: 2,
	})

	require.NoError(t, err)
	assert.Equal(t, 2, book.TotalCopies)
	assert.Equal(t, 0, book.AvailableCopies)
	assert.Equal(t, models.BookStatusUnavailable, book.Status)
}

func TestDeleteBook_OpenLoans(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newTestCatalogService(mockBookRepo, t)

	mockBookRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Book{ID: 1}, nil)
	mockBookRepo.On("Delete", mock.Anything, int64(1)).Return(repository.ErrHasOpenLoans)

	err := svc.DeleteBook(context.Background(), 1)

	assert.ErrorIs(t, err, ErrHasOpenLoans)
}

func TestDeleteBook_Success(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newTestCatalogService(mockBookRepo, t)

	mockBookRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Book{ID: 1}, nil)
	mockBookRepo.On("Delete", mock.Anything, int64(1)).Return(nil)

	err := svc.DeleteBook(context.Background(), 1)

	require.NoError(t, err)
	mockBookRepo.AssertExpectations(t)
}

func TestDeleteBook_RemovedUnderneath(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newTestCatalogService(mockBookRepo, t)

	mockBookRepo.On("GetByID", mock.Anything, int64(1)).Return(&models.Book{ID: 1}, nil)
	mockBookRepo.On("Delete", mock.Anything, int64(1)).Return(repository.ErrNotFound)

	err := svc.DeleteBook(context.Background(), 1)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdjustAvailability_Conflict(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newTestCatalogService(mockBookRepo, t)

	mockBookRepo.On("AdjustAvailability", mock.Anything, int64(1), -1).Return(repository.ErrAvailabilityConflict)

	err := svc.AdjustAvailability(context.Background(), 1, -1)

	assert.ErrorIs(t, err, ErrBookUnavailable)
}
