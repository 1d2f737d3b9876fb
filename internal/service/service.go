package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/config"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/repository"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/jwt"
)

// Cache JSON key/value store used for dashboard statistics.
// *redis.Client satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) error
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// TokenBlacklist revoked token ids. *redis.Client satisfies it.
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Service aggregate of every service
type Service struct {
	Auth      AuthService
	Subject   SubjectService
	Student   StudentService
	Grade     GradeService
	Dashboard DashboardService
	Export    ExportService
}

// Deps optional infrastructure; nil fields disable the feature
type Deps struct {
	Cache     Cache
	Blacklist TokenBlacklist
}

// NewService creates the service aggregate
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	deps Deps,
	logger *zap.Logger,
) *Service {
	stats := newStatsCache(deps.Cache, cfg.Dashboard.CacheTTL, logger)
	return &Service{
		Auth:      NewAuthService(repo, jwtMgr, deps.Blacklist, logger),
		Subject:   NewSubjectService(repo, stats, logger),
		Student:   NewStudentService(repo, stats, logger),
		Grade:     NewGradeService(repo, stats, logger),
		Dashboard: NewDashboardService(repo, stats, logger),
		Export:    NewExportService(repo, logger),
	}
}
