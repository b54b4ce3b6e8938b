package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"librarium/internal/api/repository"
	"librarium/internal/cache"
)

const systemStatsCacheKey = "stats:system"

// StatsService serves the dashboard aggregates. System-wide stats are cached
// in Redis because they join every table; member stats are cheap and always
// fresh.
type StatsService interface {
	SystemStats(ctx context.Context) (*repository.SystemStats, error)
	MemberStats(ctx context.Context, memberID string) (*repository.MemberStats, error)
	InvalidateSystemStats(ctx context.Context)
}

type statsService struct {
	statsRepo repository.StatsRepository
	cache     *cache.Cache
	logger    *slog.Logger
	now       func() time.Time
}

func NewStatsService(statsRepo repository.StatsRepository, c *cache.Cache, logger *slog.Logger) StatsService {
	return &statsService{
		statsRepo: statsRepo,
		cache:     c,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *statsService) SystemStats(ctx context.Context) (*repository.SystemStats, error) {
	if payload, ok := s.cache.Get(ctx, systemStatsCacheKey); ok {
		var stats repository.SystemStats
		if err := json.Unmarshal([]byte(payload), &stats); err == nil {
			return &stats, nil
		}
		// Corrupt cache entry; fall through to the database.
		s.cache.Invalidate(ctx, systemStatsCacheKey)
	}

	stats, err := s.statsRepo.SystemStats(ctx, s.now())
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(stats); err == nil {
		s.cache.Set(ctx, systemStatsCacheKey, string(payload))
	} else {
		s.logger.Warn("failed to cache system stats", "error", err)
	}
	return stats, nil
}

func (s *statsService) MemberStats(ctx context.Context, memberID string) (*repository.MemberStats, error) {
	return s.statsRepo.MemberStats(ctx, memberID, s.now())
}

func (s *statsService) InvalidateSystemStats(ctx context.Context) {
	s.cache.Invalidate(ctx, systemStatsCacheKey)
}
