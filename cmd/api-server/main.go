package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"librarium/database"
	"librarium/internal/api/handler"
	"librarium/internal/api/middleware"
	"librarium/internal/api/repository"
	"librarium/internal/api/service"
	"librarium/internal/cache"
	"librarium/internal/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	redisCache, err := cache.New(cfg.RedisAddr, cfg.RedisPassword, time.Duration(cfg.CacheTTL)*time.Second)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", "error", err)
	}
	defer redisCache.Close()

	if err := os.MkdirAll(cfg.CoverDataPath, 0o755); err != nil {
		logger.Error("failed to create cover directory", "path", cfg.CoverDataPath, "error", err)
		os.Exit(1)
	}

	// Repositories
	bookRepo := repository.NewBookRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Services
	auditSvc := service.NewAuditService(auditRepo, cfg, logger)
	catalogSvc := service.NewCatalogService(bookRepo, cfg, logger)
	memberSvc := service.NewMemberService(memberRepo, loanRepo, cfg)
	loanSvc := service.NewLoanService(loanRepo, bookRepo, memberRepo, cfg)
	authSvc := service.NewAuthService(memberRepo, refreshTokenRepo, cfg)
	statsSvc := service.NewStatsService(statsRepo, redisCache, logger)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, auditSvc)
	bookHandler := handler.NewBookHandler(catalogSvc, auditSvc, statsSvc, cfg)
	memberHandler := handler.NewMemberHandler(memberSvc, auditSvc, statsSvc, cfg)
	loanHandler := handler.NewLoanHandler(loanSvc, auditSvc, statsSvc, cfg)
	auditHandler := handler.NewAuditHandler(auditSvc, cfg)
	dashboardHandler := handler.NewDashboardHandler(statsSvc, catalogSvc, memberSvc)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = 8 << 20

	r.GET("/health", func(c *gin.Context) {
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.Static("/covers", cfg.CoverDataPath)

	// 5 login attempts per minute per IP
	loginLimiter := middleware.NewRateLimiter(rate.Every(12*time.Second), 5)

	authHandler.RegisterRoutes(r.Group("/auth"), loginLimiter)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(authSvc))
	{
		books := api.Group("/books")
		bookHandler.RegisterRoutes(books)
		bookHandler.RegisterAdminRoutes(books)

		memberHandler.RegisterProfileRoutes(api.Group("/members"))
		memberHandler.RegisterAdminRoutes(api.Group("/members"))

		loanHandler.RegisterRoutes(api.Group("/loans"))
		auditHandler.RegisterRoutes(api.Group("/audit"))
		dashboardHandler.RegisterRoutes(api.Group("/dashboard"))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.HTTPPort, "env", cfg.GoEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
