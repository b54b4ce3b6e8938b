package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"librarium/internal/api/dto"
	"librarium/internal/api/models"
	"librarium/internal/api/repository"
	"librarium/internal/api/service"
	"librarium/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockLoanService mocks the LoanService interface
type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) CreateLoan(ctx context.Context, bookID int64, memberID string, dueDate *time.Time, notes string) (*models.Loan, error) {
	args := m.Called(ctx, bookID, memberID, dueDate, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}

func (m *MockLoanService) ReturnBook(ctx context.Context, loanID int64, fineAmount float64, notes string) error {
	args := m.Called(ctx, loanID, fineAmount, notes)
	return args.Error(0)
}

func (m *MockLoanService) RenewLoan(ctx context.Context, loanID int64, extensionDays int) (*models.Loan, error) {
	args := m.Called(ctx, loanID, extensionDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}

func (m *MockLoanService) DeleteLoan(ctx context.Context, loanID int64) error {
	args := m.Called(ctx, loanID)
	return args.Error(0)
}

func (m *MockLoanService) CalculateFine(dueDate, asOf time.Time) float64 {
	args := m.Called(dueDate, asOf)
	return args.Get(0).(float64)
}

func (m *MockLoanService) GetWithDetails(ctx context.Context, loanID int64) (*models.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Loan), args.Error(1)
}

func (m *MockLoanService) ListAll(ctx context.Context, status string, page int) ([]repository.LoanDetail, int64, error) {
	args := m.Called(ctx, status, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]repository.LoanDetail), args.Get(1).(int64), args.Error(2)
}

func (m *MockLoanService) ListForMember(ctx context.Context, memberID, status string, page int) ([]repository.LoanDetail, int64, error) {
	args := m.Called(ctx, memberID, status, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]repository.LoanDetail), args.Get(1).(int64), args.Error(2)
}

func (m *MockLoanService) ListOverdue(ctx context.Context, page int) ([]repository.LoanDetail, int64, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]repository.LoanDetail), args.Get(1).(int64), args.Error(2)
}

func (m *MockLoanService) Stats(ctx context.Context) (*repository.LoanStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.LoanStats), args.Error(1)
}

// MockAuditService mocks the AuditService interface
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Log(ctx context.Context, actor service.ActorContext, action, details string) {
	m.Called(ctx, actor, action, details)
}

func (m *MockAuditService) List(ctx context.Context, filters repository.AuditFilters, page int) ([]repository.AuditEntry, int64, error) {
	args := m.Called(ctx, filters, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]repository.AuditEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockAuditService) Actions(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockAuditService) ExportCSV(ctx context.Context, filters repository.AuditFilters) ([]byte, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockStatsService mocks the StatsService interface
type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) SystemStats(ctx context.Context) (*repository.SystemStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SystemStats), args.Error(1)
}

func (m *MockStatsService) MemberStats(ctx context.Context, memberID string) (*repository.MemberStats, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.MemberStats), args.Error(1)
}

func (m *MockStatsService) InvalidateSystemStats(ctx context.Context) {
	m.Called(ctx)
}

func setupLoanRouter(svc service.LoanService, audit service.AuditService, userID, role string) *gin.Engine {
	router, _ := setupLoanRouterWithStats(svc, audit, userID, role)
	return router
}

func setupLoanRouterWithStats(svc service.LoanService, audit service.AuditService, userID, role string) (*gin.Engine, *MockStatsService) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", role)
	})
	stats := new(MockStatsService)
	stats.On("InvalidateSystemStats", mock.Anything).Return()
	cfg := &config.Config{ItemsPerPage: 10}
	h := NewLoanHandler(svc, audit, stats, cfg)
	h.RegisterRoutes(router.Group("/loans"))
	return router, stats
}

func TestCreateLoanHandler_Success(t *testing.T) {
	mockSvc := new(MockLoanService)
	mockAudit := new(MockAuditService)
	router := setupLoanRouter(mockSvc, mockAudit, "lib-1", models.RoleLibrarian)

	due := time.Date(2026, 3, 24, 0, 0, 0, 0, time.UTC)
	mockSvc.On("CreateLoan", mock.Anything, int64(1), "3f2c9a14-0000-0000-0000-000000000001", (*time.Time)(nil), "").
		Return(&models.Loan{ID: 10, BookID: 1, MemberID: "3f2c9a14-0000-0000-0000-000000000001", DueDate: due}, nil)
	mockAudit.On("Log", mock.Anything, mock.Anything, "Loan Created", mock.Anything).Return()

	body, _ := json.Marshal(dto.CreateLoanRequest{BookID: 1, MemberID: "3f2c9a14-0000-0000-0000-000000000001"})
	req, _ := http.NewRequest("POST", "/loans/", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
	mockAudit.AssertExpectations(t)
}

func TestCreateLoanHandler_BookUnavailable(t *testing.T) {
	mockSvc := new(MockLoanService)
	mockAudit := new(MockAuditService)
	router := setupLoanRouter(mockSvc, mockAudit, "lib-1", models.RoleLibrarian)

	mockSvc.On("CreateLoan", mock.Anything, int64(1), mock.Anything, (*time.Time)(nil), "").
		Return(nil, service.ErrBookUnavailable)

	body, _ := json.Marshal(dto.CreateLoanRequest{BookID: 1, MemberID: "3f2c9a14-0000-0000-0000-000000000001"})
	req, _ := http.NewRequest("POST", "/loans/", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockAudit.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateLoanHandler_MemberForbidden(t *testing.T) {
	mockSvc := new(MockLoanService)
	mockAudit := new(MockAuditService)
	router := setupLoanRouter(mockSvc, mockAudit, "member-1", models.RoleMember)

	body, _ := json.Marshal(dto.CreateLoanRequest{BookID: 1, MemberID: "3f2c9a14-0000-0000-0000-000000000001"})
	req, _ := http.NewRequest("POST", "/loans/", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertNotCalled(t, "CreateLoan", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestListLoansHandler_MemberSeesOwnOnly(t *testing.T) {
	mockSvc := new(MockLoanService)
	mockAudit := new(MockAuditService)
	router := setupLoanRouter(mockSvc, mockAudit, "member-1", models.RoleMember)

	mockSvc.On("ListForMember", mock.Anything, "member-1", "all", 1).
		Return([]repository.LoanDetail{}, int64(0), nil)

	req, _ := http.NewRequest("GET", "/loans/", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertNotCalled(t, "ListAll", mock.Anything, mock.Anything, mock.Anything)
	mockSvc.AssertExpectations(t)
}

func TestRenewLoanHandler_MemberOverdue(t *testing.T) {
	mockSvc := new(MockLoanService)
	mockAudit := new(MockAuditService)
	router := setupLoanRouter(mockSvc, mockAudit, "member-1", models.RoleMember)

	overdueDue := time.Now().AddDate(0, 0, -3)
	mockSvc.On("GetWithDetails", mock.Anything, int64(4)).Return(&models.Loan{
		ID: 4, MemberID: "member-1", DueDate: overdueDue,
	}, nil)

	req, _ := http.NewRequest("POST", "/loans/4/renew", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockSvc.AssertNotCalled(t, "RenewLoan", mock.Anything, mock.Anything, mock.Anything)
}

func TestRenewLoanHandler_MemberNotOwner(t *testing.T) {
	mockSvc := new(MockLoanService)
	mockAudit := new(MockAuditService)
	router := setupLoanRouter(mockSvc, mockAudit, "member-1", models.RoleMember)

	mockSvc.On("GetWithDetails", mock.Anything, int64(4)).Return(&models.Loan{
		ID: 4, MemberID: "member-2", DueDate: time.Now().AddDate(0, 0, 5),
	}, nil)

	req, _ := http.NewRequest("POST", "/loans/4/renew", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRenewLoanHandler_LibrarianAnyOpenLoan(t *testing.T) {
	mockSvc := new(MockLoanService)
	mockAudit := new(MockAuditService)
	router := setupLoanRouter(mockSvc, mockAudit, "lib-1", models.RoleLibrarian)

	overdueDue := time.Now().AddDate(0, 0, -3)
	mockSvc.On("GetWithDetails", mock.Anything, int64(4)).Return(&models.Loan{
		ID: 4, MemberID: "member-2", DueDate: overdueDue,
	}, nil)
	mockSvc.On("RenewLoan", mock.Anything, int64(4), 0).Return(&models.Loan{
		ID: 4, MemberID: "member-2", DueDate: overdueDue.AddDate(0, 0, 14),
	}, nil)
	mockAudit.On("Log", mock.Anything, mock.Anything, "Loan Renewed", mock.Anything).Return()

	req, _ := http.NewRequest("POST", "/loans/4/renew", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestReturnLoanHandler_ComputesFine(t *testing.T) {
	mockSvc := new(MockLoanService)
	mockAudit := new(MockAuditService)
	router := setupLoanRouter(mockSvc, mockAudit, "lib-1", models.RoleLibrarian)

	due := time.Now().AddDate(0, 0, -2)
	mockSvc.On("GetWithDetails", mock.Anything, int64(7)).Return(&models.Loan{ID: 7, DueDate: due}, nil)
	mockSvc.On("CalculateFine", due, mock.Anything).Return(1.0)
	mockSvc.On("ReturnBook", mock.Anything, int64(7), 1.0, "").Return(nil)
	mockAudit.On("Log", mock.Anything, mock.Anything, "Book Returned", mock.Anything).Return()

	req, _ := http.NewRequest("POST", "/loans/7/return", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]float64
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, 1.0, response["fine_amount"])
	mockSvc.AssertExpectations(t)
}

func TestReturnLoanHandler_ExplicitZeroWaivesFine(t *testing.T) {
	mockSvc := new(MockLoanService)
	mockAudit := new(MockAuditService)
	router := setupLoanRouter(mockSvc, mockAudit, "lib-1", models.RoleLibrarian)

	// zero sent on purpose must not fall back to the computed fine
	mockSvc.On("ReturnBook", mock.Anything, int64(7), 0.0, "waived, damaged in transit").Return(nil)
	mockAudit.On("Log", mock.Anything, mock.Anything, "Book Returned", mock.Anything).Return()

	body := []byte(`{"fine_amount": 0, "notes": "waived, damaged in transit"}`)
	req, _ := http.NewRequest("POST", "/loans/7/return", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertNotCalled(t, "CalculateFine", mock.Anything, mock.Anything)
	mockSvc.AssertNotCalled(t, "GetWithDetails", mock.Anything, mock.Anything)
	mockSvc.AssertExpectations(t)
}

func TestReturnLoanHandler_RefreshesDashboardStats(t *testing.T) {
	mockSvc := new(MockLoanService)
	mockAudit := new(MockAuditService)
	router, stats := setupLoanRouterWithStats(mockSvc, mockAudit, "lib-1", models.RoleLibrarian)

	mockSvc.On("ReturnBook", mock.Anything, int64(7), 2.5, "").Return(nil)
	mockAudit.On("Log", mock.Anything, mock.Anything, "Book Returned", mock.Anything).Return()

	body := []byte(`{"fine_amount": 2.5}`)
	req, _ := http.NewRequest("POST", "/loans/7/return", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	stats.AssertCalled(t, "InvalidateSystemStats", mock.Anything)
}

func TestDeleteLoanHandler_InvalidState(t *testing.T) {
	mockSvc := new(MockLoanService)
	mockAudit := new(MockAuditService)
	router := setupLoanRouter(mockSvc, mockAudit, "lib-1", models.RoleLibrarian)

	mockSvc.On("DeleteLoan", mock.Anything, int64(9)).Return(service.ErrNotFound)

	req, _ := http.NewRequest("DELETE", "/loans/9", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
