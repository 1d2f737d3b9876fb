package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/config"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/jwt"
)

// ── helpers ──

func newTestJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-for-unit-testing",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func setupTestAuthService() (AuthService, *mockStore, *mockBlacklist, *jwt.Manager) {
	st := newMockStore()
	bl := newMockBlacklist()
	mgr := newTestJWT()
	return NewAuthService(st.repository(), mgr, bl, zap.NewNop()), st, bl, mgr
}

func registerTeacher(t *testing.T, svc AuthService) *dto.TeacherResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "Bu Sari",
		Email:    "Sari@Sekolah.id",
		Password: "rahasia123",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return resp
}

// ── Register ──

func TestRegister_Success(t *testing.T) {
	svc, st, _, _ := setupTestAuthService()
	resp := registerTeacher(t, svc)

	if resp.Email != "sari@sekolah.id" {
		t.Errorf("expected lower-cased email, got %s", resp.Email)
	}
	stored := st.teachers[resp.ID]
	if stored == nil || stored.PasswordHash == "rahasia123" || stored.PasswordHash == "" {
		t.Error("expected a bcrypt hash to be stored")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	registerTeacher(t, svc)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Pak Budi", Email: "sari@sekolah.id", Password: "rahasia456",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

// ── Login ──

func TestLogin_Success(t *testing.T) {
	svc, _, _, mgr := setupTestAuthService()
	teacher := registerTeacher(t, svc)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "sari@sekolah.id", Password: "rahasia123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.ExpiresIn != 900 {
		t.Errorf("expected ExpiresIn=900, got %d", resp.ExpiresIn)
	}
	claims, err := mgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("access token does not parse: %v", err)
	}
	if claims.TeacherID != teacher.ID || claims.TokenType != jwt.TokenTypeAccess {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	registerTeacher(t, svc)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "sari@sekolah.id", Password: "salah"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "none@sekolah.id", Password: "x"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

// ── Refresh / Logout ──

func TestRefresh_RotatesToken(t *testing.T) {
	svc, _, bl, _ := setupTestAuthService()
	registerTeacher(t, svc)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "sari@sekolah.id", Password: "rahasia123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := svc.Refresh(ctx, login.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(bl.revoked) != 1 {
		t.Fatalf("expected the used refresh token to be revoked, got %d entries", len(bl.revoked))
	}

	if _, err := svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("expected reuse to fail with ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	registerTeacher(t, svc)

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: "sari@sekolah.id", Password: "rahasia123"})
	if _, err := svc.Refresh(context.Background(), login.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestLogout_BlacklistsAccessToken(t *testing.T) {
	svc, _, bl, mgr := setupTestAuthService()
	registerTeacher(t, svc)

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: "sari@sekolah.id", Password: "rahasia123"})
	claims, _ := mgr.ParseToken(login.AccessToken)

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	ttl, ok := bl.revoked[claims.ID]
	if !ok {
		t.Fatal("expected jti to be blacklisted")
	}
	if ttl <= 0 || ttl > 15*time.Minute {
		t.Errorf("expected ttl bounded by token lifetime, got %s", ttl)
	}
}

func TestMe_NotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()
	if _, err := svc.Me(context.Background(), "nobody"); !errors.Is(err, ErrTeacherNotFound) {
		t.Errorf("expected ErrTeacherNotFound, got %v", err)
	}
}
