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

type MemberHandler struct {
	svc      service.MemberService
	audit    service.AuditService
	stats    service.StatsService
	pageSize int
}

func NewMemberHandler(svc service.MemberService, audit service.AuditService, stats service.StatsService, cfg *config.Config) *MemberHandler {
	return &MemberHandler{svc: svc, audit: audit, stats: stats, pageSize: cfg.ItemsPerPage}
}

// RegisterProfileRoutes wires the self-service routes available to any
// authenticated member.
func (h *MemberHandler) RegisterProfileRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", h.Profile)
	rg.PUT("/profile", h.UpdateProfile)
}

// RegisterAdminRoutes wires the librarian-only member management routes.
func (h *MemberHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.Use(middleware.RequireLibrarian())
	rg.GET("/", h.List)
	rg.GET("/overdue", h.WithOverdue)
	rg.GET("/:id", h.Show)
	rg.GET("/:id/can-borrow", h.CanBorrow)
	rg.POST("/", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

func (h *MemberHandler) Profile(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	member, err := h.svc.GetByID(ctx, c.GetString("userID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	member, err := h.svc.UpdateProfile(ctx, c.GetString("userID"), service.ProfileInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Log(ctx, actorFrom(c), "Profile Updated", fmt.Sprintf("Member %s updated their profile", member.Email))
	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	filters := repository.MemberFilters{
		Status: c.Query("status"),
		Query:  c.Query("query"),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	members, total, err := h.svc.List(ctx, filters, page)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MemberListResponse{
		Items:      members,
		Pagination: dto.NewPagination(page, h.pageSize, total),
	})
}

func (h *MemberHandler) WithOverdue(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	members, err := h.svc.MembersWithOverdue(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": members})
}

func (h *MemberHandler) Show(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	member, err := h.svc.GetByID(ctx, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	open, err := h.svc.CountOpenLoans(ctx, member.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"member": member, "open_loans": open})
}

func (h *MemberHandler) CanBorrow(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ok, err := h.svc.CanBorrow(ctx, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"can_borrow": ok})
}

func (h *MemberHandler) Create(c *gin.Context) {
	var req dto.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	member, err := h.svc.Create(ctx, service.MemberInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
		Role:     req.Role,
		Status:   req.Status,
		Notes:    req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Log(ctx, actorFrom(c), "Member Added", fmt.Sprintf("Added member: %s (%s)", member.Name, member.Email))
	h.stats.InvalidateSystemStats(ctx)
	c.JSON(http.StatusCreated, member)
}

func (h *MemberHandler) Update(c *gin.Context) {
	var req dto.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	member, err := h.svc.Update(ctx, c.Param("id"), service.MemberInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
		Role:     req.Role,
		Status:   req.Status,
		Notes:    req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Log(ctx, actorFrom(c), "Member Updated", fmt.Sprintf("Updated member: %s (%s)", member.Name, member.Email))
	h.stats.InvalidateSystemStats(ctx)
	c.JSON(http.StatusOK, member)
}

func (h *MemberHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Delete(ctx, id); err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Log(ctx, actorFrom(c), "Member Deleted", fmt.Sprintf("Deleted member ID: %s", id))
	h.stats.InvalidateSystemStats(ctx)
	c.Status(http.StatusNoContent)
}
