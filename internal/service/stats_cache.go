package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/redis"
)

// statsCache per-teacher dashboard cache. Every method is a no-op when no
// Cache is configured or the TTL is zero; cache failures are logged and
// never fail the request.
type statsCache struct {
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

func newStatsCache(cache Cache, ttl time.Duration, logger *zap.Logger) *statsCache {
	return &statsCache{cache: cache, ttl: ttl, logger: logger}
}

func (c *statsCache) enabled() bool {
	return c != nil && c.cache != nil && c.ttl > 0
}

// dashboardKey entries are keyed by generation; invalidate bumps the
// generation, so a result computed before a write and stored after it is
// never read.
func dashboardKey(teacherID string, gen int64) string {
	return fmt.Sprintf("dashboard:%s:%d", teacherID, gen)
}

func generationKey(teacherID string) string {
	return "dashboard:gen:" + teacherID
}

// get returns the cached dashboard and the generation it was looked up
// under. A negative generation means the lookup failed and nothing may be
// stored.
func (c *statsCache) get(ctx context.Context, teacherID string) (*dto.DashboardResponse, int64, bool) {
	if !c.enabled() {
		return nil, -1, false
	}
	var gen int64
	if err := c.cache.GetJSON(ctx, generationKey(teacherID), &gen); err != nil && !errors.Is(err, redis.ErrCacheMiss) {
		c.logger.Warn("dashboard cache generation read failed", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, -1, false
	}

	var resp dto.DashboardResponse
	if err := c.cache.GetJSON(ctx, dashboardKey(teacherID, gen), &resp); err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			c.logger.Warn("dashboard cache read failed", zap.String("teacher_id", teacherID), zap.Error(err))
		}
		return nil, gen, false
	}
	return &resp, gen, true
}

// set stores resp under the generation get returned
func (c *statsCache) set(ctx context.Context, teacherID string, gen int64, resp *dto.DashboardResponse) {
	if !c.enabled() || gen < 0 {
		return
	}
	if err := c.cache.SetJSON(ctx, dashboardKey(teacherID, gen), resp, c.ttl); err != nil {
		c.logger.Warn("dashboard cache write failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}

func (c *statsCache) invalidate(ctx context.Context, teacherID string) {
	if !c.enabled() {
		return
	}
	gen, err := c.cache.Incr(ctx, generationKey(teacherID))
	if err != nil {
		c.logger.Warn("dashboard cache invalidation failed", zap.String("teacher_id", teacherID), zap.Error(err))
		return
	}
	if err := c.cache.Delete(ctx, dashboardKey(teacherID, gen-1)); err != nil {
		c.logger.Warn("dashboard cache cleanup failed", zap.String("teacher_id", teacherID), zap.Error(err))
	}
}
