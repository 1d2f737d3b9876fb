package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/model"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/repository"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/jwt"
)

var (
	ErrInvalidCredentials  = errors.New("email atau kata sandi salah")
	ErrEmailTaken          = errors.New("email sudah terdaftar")
	ErrTeacherNotFound     = errors.New("guru tidak ditemukan")
	ErrInvalidRefreshToken = errors.New("refresh token tidak valid")
)

// AuthService teacher accounts and tokens
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TeacherResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout revokes the token described by claims until it would have expired
	Logout(ctx context.Context, claims *jwt.Claims) error
	Me(ctx context.Context, teacherID string) (*dto.TeacherResponse, error)
}

type authService struct {
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService creates an AuthService; blacklist may be nil
func NewAuthService(
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TeacherResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.repo.Teacher.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("failed to look up teacher", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	teacher := &model.Teacher{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.Teacher.Create(ctx, teacher); err != nil {
		s.logger.Error("failed to create teacher", zap.Error(err))
		return nil, err
	}

	s.logger.Info("teacher registered", zap.String("teacher_id", teacher.TeacherID))
	return toTeacherResponse(teacher), nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	teacher, err := s.repo.Teacher.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to look up teacher", zap.Error(err))
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(teacher)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("failed to check token blacklist", zap.Error(err))
			return nil, err
		}
		if revoked {
			return nil, ErrInvalidRefreshToken
		}
	}

	teacher, err := s.repo.Teacher.GetByID(ctx, claims.TeacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("failed to look up teacher", zap.Error(err))
		return nil, err
	}

	// rotate: the presented refresh token is single use
	s.revoke(ctx, claims)

	return s.issueTokens(teacher)
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	s.revoke(ctx, claims)
	return nil
}

func (s *authService) Me(ctx context.Context, teacherID string) (*dto.TeacherResponse, error) {
	teacher, err := s.repo.Teacher.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		s.logger.Error("failed to look up teacher", zap.Error(err))
		return nil, err
	}
	return toTeacherResponse(teacher), nil
}

// ── helpers ──

func (s *authService) issueTokens(teacher *model.Teacher) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(teacher.TeacherID, teacher.Name)
	if err != nil {
		s.logger.Error("failed to sign access token", zap.Error(err))
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(teacher.TeacherID, teacher.Name)
	if err != nil {
		s.logger.Error("failed to sign refresh token", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		Teacher:      *toTeacherResponse(teacher),
	}, nil
}

func (s *authService) revoke(ctx context.Context, claims *jwt.Claims) {
	if s.blacklist == nil || claims == nil || claims.ExpiresAt == nil {
		return
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Warn("failed to revoke token", zap.String("jti", claims.ID), zap.Error(err))
	}
}

func toTeacherResponse(t *model.Teacher) *dto.TeacherResponse {
	return &dto.TeacherResponse{ID: t.TeacherID, Name: t.Name, Email: t.Email}
}
