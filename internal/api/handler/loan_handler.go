package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"librarium/internal/api/dto"
	"librarium/internal/api/middleware"
	"librarium/internal/api/models"
	"librarium/internal/api/repository"
	"librarium/internal/api/service"
	"librarium/internal/config"

	"github.com/gin-gonic/gin"
)

type LoanHandler struct {
	svc      service.LoanService
	audit    service.AuditService
	stats    service.StatsService
	pageSize int
}

func NewLoanHandler(svc service.LoanService, audit service.AuditService, stats service.StatsService, cfg *config.Config) *LoanHandler {
	return &LoanHandler{svc: svc, audit: audit, stats: stats, pageSize: cfg.ItemsPerPage}
}

func (h *LoanHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.List)
	rg.GET("/history", h.History)
	rg.GET("/overdue", middleware.RequireLibrarian(), h.Overdue)
	rg.GET("/:id", h.Show)
	rg.POST("/", middleware.RequireLibrarian(), h.Create)
	rg.POST("/:id/return", middleware.RequireLibrarian(), h.Return)
	rg.POST("/:id/renew", h.Renew)
	rg.DELETE("/:id", middleware.RequireLibrarian(), h.Delete)
}

// List shows every loan to librarians and only the caller's own loans to
// members. The optional status filter accepts active, overdue or returned.
func (h *LoanHandler) List(c *gin.Context) {
	h.list(c, c.DefaultQuery("status", "all"))
}

// History is the returned-loans view of List.
func (h *LoanHandler) History(c *gin.Context) {
	h.list(c, models.LoanStatusReturned)
}

func (h *LoanHandler) list(c *gin.Context, status string) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var (
		loans []repository.LoanDetail
		total int64
		err   error
	)
	if c.GetString("role") == models.RoleLibrarian {
		loans, total, err = h.svc.ListAll(ctx, status, page)
	} else {
		loans, total, err = h.svc.ListForMember(ctx, c.GetString("userID"), status, page)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoanListResponse{
		Items:      loans,
		Pagination: dto.NewPagination(page, h.pageSize, total),
	})
}

func (h *LoanHandler) Overdue(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	loans, total, err := h.svc.ListOverdue(ctx, page)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoanListResponse{
		Items:      loans,
		Pagination: dto.NewPagination(page, h.pageSize, total),
	})
}

func (h *LoanHandler) Show(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	loan, err := h.svc.GetWithDetails(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !canAccessLoan(c, loan) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	now := time.Now()
	c.JSON(http.StatusOK, gin.H{
		"loan":         loan,
		"status":       loan.StatusAt(now),
		"current_fine": h.svc.CalculateFine(loan.DueDate, now),
	})
}

func (h *LoanHandler) Create(c *gin.Context) {
	var req dto.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due date"})
			return
		}
		dueDate = &parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	loan, err := h.svc.CreateLoan(ctx, req.BookID, req.MemberID, dueDate, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Log(ctx, actorFrom(c), "Loan Created",
		fmt.Sprintf("Loan %d: book %d issued to member %s, due %s", loan.ID, loan.BookID, loan.MemberID, loan.DueDate.Format("2006-01-02")))
	h.stats.InvalidateSystemStats(ctx)
	c.JSON(http.StatusCreated, loan)
}

func (h *LoanHandler) Return(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	// body is optional: no body means no explicit fine or notes
	var req dto.ReturnLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	// an explicit fine, including an explicit 0 to waive it, wins; otherwise
	// compute from the due date
	var fine float64
	if req.FineAmount != nil {
		fine = *req.FineAmount
	} else {
		loan, err := h.svc.GetWithDetails(ctx, id)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		fine = h.svc.CalculateFine(loan.DueDate, time.Now())
	}

	if err := h.svc.ReturnBook(ctx, id, fine, req.Notes); err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Log(ctx, actorFrom(c), "Book Returned",
		fmt.Sprintf("Loan %d returned, fine %.2f", id, fine))
	h.stats.InvalidateSystemStats(ctx)
	c.JSON(http.StatusOK, gin.H{"fine_amount": fine})
}

// Renew extends a loan's due date. Librarians may renew any open loan; members
// may renew their own loans only while not yet overdue.
func (h *LoanHandler) Renew(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	var req dto.RenewLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	loan, err := h.svc.GetWithDetails(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if c.GetString("role") != models.RoleLibrarian {
		if loan.MemberID != c.GetString("userID") {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		if loan.StatusAt(time.Now()) == models.LoanStatusOverdue {
			c.JSON(http.StatusConflict, gin.H{"error": "overdue loans cannot be renewed"})
			return
		}
	}

	renewed, err := h.svc.RenewLoan(ctx, id, req.ExtensionDays)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Log(ctx, actorFrom(c), "Loan Renewed",
		fmt.Sprintf("Loan %d renewed, new due date %s", id, renewed.DueDate.Format("2006-01-02")))
	h.stats.InvalidateSystemStats(ctx)
	c.JSON(http.StatusOK, renewed)
}

func (h *LoanHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid loan id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.svc.DeleteLoan(ctx, id); err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Log(ctx, actorFrom(c), "Loan Deleted", fmt.Sprintf("Deleted loan ID: %d", id))
	h.stats.InvalidateSystemStats(ctx)
	c.Status(http.StatusNoContent)
}

func canAccessLoan(c *gin.Context, loan *models.Loan) bool {
	if c.GetString("role") == models.RoleLibrarian {
		return true
	}
	return loan.MemberID == c.GetString("userID")
}
