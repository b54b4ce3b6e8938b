package service

import (
	"context"
	"errors"
	"time"

	"librarium/internal/api/models"
	"librarium/internal/api/repository"
	"librarium/internal/config"
)

// LoanService is the loan engine: it creates, returns, renews and deletes
// loans while keeping book availability consistent, and computes fines.
// Authorization is enforced by the HTTP layer, not here.
type LoanService interface {
	CreateLoan(ctx context.Context, bookID int64, memberID string, dueDate *time.Time, notes string) (*models.Loan, error)
	ReturnBook(ctx context.Context, loanID int64, fineAmount float64, notes string) error
	RenewLoan(ctx context.Context, loanID int64, extensionDays int) (*models.Loan, error)
	DeleteLoan(ctx context.Context, loanID int64) error
	CalculateFine(dueDate, asOf time.Time) float64

	GetWithDetails(ctx context.Context, loanID int64) (*models.Loan, error)
	ListAll(ctx context.Context, status string, page int) ([]repository.LoanDetail, int64, error)
	ListForMember(ctx context.Context, memberID, status string, page int) ([]repository.LoanDetail, int64, error)
	ListOverdue(ctx context.Context, page int) ([]repository.LoanDetail, int64, error)
	Stats(ctx context.Context) (*repository.LoanStats, error)
}

type loanService struct {
	loanRepo   repository.LoanRepository
	bookRepo   repository.BookRepository
	memberRepo repository.MemberRepository

	defaultLoanDays   int
	maxLoansPerMember int
	fineRatePerDay    float64
	pageSize          int

	// now is swappable for tests
	now func() time.Time
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	bookRepo repository.BookRepository,
	memberRepo repository.MemberRepository,
	cfg *config.Config,
) LoanService {
	return &loanService{
		loanRepo:          loanRepo,
		bookRepo:          bookRepo,
		memberRepo:        memberRepo,
		defaultLoanDays:   cfg.DefaultLoanDays,
		maxLoansPerMember: cfg.MaxLoansPerMember,
		fineRatePerDay:    cfg.FineRatePerDay,
		pageSize:          cfg.ItemsPerPage,
		now:               time.Now,
	}
}

// CreateLoan checks availability and the member's borrowing limit, then
// inserts the loan and decrements availability as one atomic unit. The
// decrement re-verifies availability inside the transaction, so a concurrent
// loan against the last copy loses cleanly with ErrBookUnavailable instead of
// driving the counter negative.
func (s *loanService) CreateLoan(ctx context.Context, bookID int64, memberID string, dueDate *time.Time, notes string) (*models.Loan, error) {
	today := s.now()

	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !book.IsAvailable() {
		return nil, ErrBookUnavailable
	}

	if _, err := s.memberRepo.GetByID(ctx, memberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	open, err := s.loanRepo.CountOpenByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if open >= int64(s.maxLoansPerMember) {
		return nil, ErrBorrowLimitExceeded
	}

	due := dateOnly(today).AddDate(0, 0, s.defaultLoanDays)
	if dueDate != nil {
		due = dateOnly(*dueDate)
	}

	loan := &models.Loan{
		BookID:    bookID,
		MemberID:  memberID,
		IssueDate: dateOnly(today),
		DueDate:   due,
		Notes:     notes,
	}

	if err := s.loanRepo.CreateLoan(ctx, loan); err != nil {
		if errors.Is(err, repository.ErrAvailabilityConflict) {
			return nil, ErrBookUnavailable
		}
		return nil, err
	}
	return loan, nil
}

// ReturnBook marks an open loan returned and restores availability in one
// atomic unit. Returning an already-returned or missing loan fails with
// ErrInvalidLoanState and changes nothing.
func (s *loanService) ReturnBook(ctx context.Context, loanID int64, fineAmount float64, notes string) error {
	err := s.loanRepo.ReturnLoan(ctx, loanID, s.now(), fineAmount, notes)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidLoanState
	}
	return err
}

// RenewLoan extends the due date from the current due date, not from today, so
// an early renewal keeps the unused days and an overdue renewal does not reset
// the clock. The extension happens in the repository under a row lock as one
// atomic unit; no due date is read outside it. Availability is untouched; the
// book stays on loan.
func (s *loanService) RenewLoan(ctx context.Context, loanID int64, extensionDays int) (*models.Loan, error) {
	if extensionDays <= 0 {
		extensionDays = s.defaultLoanDays
	}

	note := "Renewed on " + s.now().Format("2006-01-02") + "."
	loan, err := s.loanRepo.RenewLoan(ctx, loanID, extensionDays, note)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidLoanState
		}
		return nil, err
	}
	return loan, nil
}

// DeleteLoan removes the loan record. When the loan is still open the book's
// availability is restored first, inside the same transaction.
func (s *loanService) DeleteLoan(ctx context.Context, loanID int64) error {
	err := s.loanRepo.DeleteLoan(ctx, loanID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// CalculateFine computes the overdue fine as whole calendar days late times
// the configured daily rate. Never negative.
func (s *loanService) CalculateFine(dueDate, asOf time.Time) float64 {
	return CalculateFine(dueDate, asOf, s.fineRatePerDay)
}

// CalculateFine is the pure fine rule shared with tests and handlers.
func CalculateFine(dueDate, asOf time.Time, ratePerDay float64) float64 {
	due := dateOnly(dueDate)
	day := dateOnly(asOf)
	if !day.After(due) {
		return 0
	}
	daysOverdue := int(day.Sub(due) / (24 * time.Hour))
	return float64(daysOverdue) * ratePerDay
}

func (s *loanService) GetWithDetails(ctx context.Context, loanID int64) (*models.Loan, error) {
	loan, err := s.loanRepo.GetWithDetails(ctx, loanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return loan, nil
}

func (s *loanService) ListAll(ctx context.Context, status string, page int) ([]repository.LoanDetail, int64, error) {
	return s.loanRepo.ListWithDetails(ctx, status, s.now(), normalizePage(page), s.pageSize)
}

func (s *loanService) ListForMember(ctx context.Context, memberID, status string, page int) ([]repository.LoanDetail, int64, error) {
	return s.loanRepo.ListForMember(ctx, memberID, status, s.now(), normalizePage(page), s.pageSize)
}

func (s *loanService) ListOverdue(ctx context.Context, page int) ([]repository.LoanDetail, int64, error) {
	return s.loanRepo.ListOverdue(ctx, s.now(), normalizePage(page), s.pageSize)
}

func (s *loanService) Stats(ctx context.Context) (*repository.LoanStats, error) {
	return s.loanRepo.Stats(ctx, s.now())
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// dateOnly truncates to the civil date, normalized to UTC so dates parsed in
// different locations land on comparable midnights and day arithmetic is
// immune to DST.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
