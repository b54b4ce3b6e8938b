package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"librarium/internal/api/dto"
	"librarium/internal/api/middleware"
	"librarium/internal/api/repository"
	"librarium/internal/api/service"
	"librarium/internal/config"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	svc      service.AuditService
	pageSize int
}

func NewAuditHandler(svc service.AuditService, cfg *config.Config) *AuditHandler {
	return &AuditHandler{svc: svc, pageSize: cfg.ItemsPerPage}
}

func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(middleware.RequireLibrarian())
	rg.GET("/", h.List)
	rg.GET("/export", h.Export)
}

func (h *AuditHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	filters, err := auditFiltersFrom(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	entries, total, err := h.svc.List(ctx, filters, page)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	actions, err := h.svc.Actions(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuditListResponse{
		Items:      entries,
		Pagination: dto.NewPagination(page, h.pageSize, total),
		Actions:    actions,
	})
}

// Export streams the filtered audit log as a CSV attachment.
func (h *AuditHandler) Export(c *gin.Context) {
	filters, err := auditFiltersFrom(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	payload, err := h.svc.ExportCSV(ctx, filters)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("audit_log_%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

func auditFiltersFrom(c *gin.Context) (repository.AuditFilters, error) {
	filters := repository.AuditFilters{
		Action: c.Query("action"),
		UserID: c.Query("user_id"),
	}
	if raw := c.Query("start_date"); raw != "" {
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			return filters, fmt.Errorf("invalid start date")
		}
		filters.StartDate = raw
	}
	if raw := c.Query("end_date"); raw != "" {
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			return filters, fmt.Errorf("invalid end date")
		}
		filters.EndDate = raw
	}
	return filters, nil
}
