package handler

import (
	"context"
	"net/http"
	"time"

	"librarium/internal/api/dto"
	"librarium/internal/api/middleware"
	"librarium/internal/api/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc   service.AuthService
	audit service.AuditService
}

func NewAuthHandler(svc service.AuthService, audit service.AuditService) *AuthHandler {
	return &AuthHandler{svc: svc, audit: audit}
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, loginLimiter *middleware.RateLimiter) {
	rg.POST("/register", loginLimiter.Middleware(), h.Register)
	rg.POST("/login", loginLimiter.Middleware(), h.Login)
	rg.POST("/refresh", h.Refresh)
	rg.POST("/logout", h.Logout)
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	member, err := h.svc.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	actor := service.ActorContext{UserID: member.ID, Role: member.Role, IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	h.audit.Log(ctx, actor, "Registration", "New member registered")

	c.JSON(http.StatusCreated, member)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	accessToken, refreshToken, member, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	actor := service.ActorContext{UserID: member.ID, Role: member.Role, IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
	h.audit.Log(ctx, actor, "Login", "User logged in")

	c.JSON(http.StatusOK, dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Member:       member,
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	accessToken, err := h.svc.RefreshAccessToken(ctx, req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{AccessToken: accessToken})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Logout(ctx, req.RefreshToken); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
