package handler

import (
	"context"
	"net/http"
	"time"

	"librarium/internal/api/models"
	"librarium/internal/api/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	stats   service.StatsService
	catalog service.CatalogService
	members service.MemberService
}

func NewDashboardHandler(stats service.StatsService, catalog service.CatalogService, members service.MemberService) *DashboardHandler {
	return &DashboardHandler{stats: stats, catalog: catalog, members: members}
}

func (h *DashboardHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.Show)
}

// Show returns the role-dependent dashboard payload: librarians get the
// system-wide aggregates, members get their own loan summary.
func (h *DashboardHandler) Show(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if c.GetString("role") == models.RoleLibrarian {
		h.librarianDashboard(c, ctx)
		return
	}
	h.memberDashboard(c, ctx)
}

func (h *DashboardHandler) librarianDashboard(c *gin.Context, ctx context.Context) {
	stats, err := h.stats.SystemStats(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	overdue, err := h.members.MembersWithOverdue(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":           stats,
		"overdue_members": overdue,
	})
}

func (h *DashboardHandler) memberDashboard(c *gin.Context, ctx context.Context) {
	memberID := c.GetString("userID")

	stats, err := h.stats.MemberStats(ctx, memberID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	canBorrow, err := h.members.CanBorrow(ctx, memberID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	popular, err := h.catalog.Popular(ctx, 5)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	recent, err := h.catalog.Recent(ctx, 5)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":         stats,
		"can_borrow":    canBorrow,
		"popular_books": popular,
		"recent_books":  recent,
	})
}
