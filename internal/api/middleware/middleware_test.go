package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/config"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBlacklist struct {
	revoked map[string]bool
	err     error
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	return f.revoked[jti], f.err
}

type fakeLimiter struct {
	remaining int
	err       error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.remaining <= 0 {
		return false, nil
	}
	f.remaining--
	return true, nil
}

func newManager() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "middleware-test-secret-0123456789",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
}

func authRequest(t *testing.T, mw gin.HandlerFunc, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	r := gin.New()
	r.GET("/me", mw, func(c *gin.Context) {
		seen = c.GetString(ctxTeacherID)
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w, seen
}

func TestJWTAuth_AcceptsAccessToken(t *testing.T) {
	m := newManager()
	token, _ := m.GenerateAccessToken("teacher-1", "Bu Sari")

	w, seen := authRequest(t, JWTAuth(m, nil, zap.NewNop()), "Bearer "+token)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seen != "teacher-1" {
		t.Errorf("expected teacher-1 in context, got %q", seen)
	}
}

func TestJWTAuth_Rejects(t *testing.T) {
	m := newManager()
	refresh, _ := m.GenerateRefreshToken("teacher-1", "Bu Sari")

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"garbage token":  "Bearer not-a-token",
		"refresh token":  "Bearer " + refresh,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			w, _ := authRequest(t, JWTAuth(m, nil, zap.NewNop()), header)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestJWTAuth_Blacklisted(t *testing.T) {
	m := newManager()
	token, _ := m.GenerateAccessToken("teacher-1", "Bu Sari")
	claims, _ := m.ParseToken(token)

	bl := &fakeBlacklist{revoked: map[string]bool{claims.ID: true}}
	w, _ := authRequest(t, JWTAuth(m, bl, zap.NewNop()), "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for revoked token, got %d", w.Code)
	}
}

func TestJWTAuth_BlacklistErrorLetsThrough(t *testing.T) {
	m := newManager()
	token, _ := m.GenerateAccessToken("teacher-1", "Bu Sari")

	bl := &fakeBlacklist{err: errors.New("redis down")}
	w, _ := authRequest(t, JWTAuth(m, bl, zap.NewNop()), "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 when redis fails, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	limiter := &fakeLimiter{remaining: 2}
	r := gin.New()
	r.POST("/login", RateLimit(limiter, 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/login", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected status sequence %v", codes)
	}
}

func TestRateLimit_NilLimiter(t *testing.T) {
	r := gin.New()
	r.POST("/login", RateLimit(nil, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("POST", "/login", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.GET("/", RequestID(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("expected echoed id, got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if got := w.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Errorf("expected generated uuid, got %q", got)
	}
}

func TestRequestID_RejectsMalformedHeader(t *testing.T) {
	var fromCtx string
	r := gin.New()
	r.GET("/", RequestID(), func(c *gin.Context) {
		fromCtx = RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	for _, bad := range []string{"has space", "new\nline", strings.Repeat("a", 65), "semi;colon"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Request-ID", bad)
		r.ServeHTTP(w, req)
		got := w.Header().Get("X-Request-ID")
		if got == bad || len(got) != 36 {
			t.Errorf("%q: expected replacement uuid, got %q", bad, got)
		}
		if fromCtx != got {
			t.Errorf("%q: context id %q differs from header %q", bad, fromCtx, got)
		}
	}
}

func TestBodyLimit_RecordedReadError(t *testing.T) {
	r := gin.New()
	r.POST("/upload", BodyLimit(8), func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/upload", strings.NewReader("0123456789abcdef")))
	if w.Code != http.StatusRequestEntityTooLarge || !strings.Contains(w.Body.String(), "10005") {
		t.Fatalf("expected 413/10005, got %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/upload", strings.NewReader("short")))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 under the limit, got %d", w.Code)
	}
}

func TestBodyLimit_HandlerResponseKept(t *testing.T) {
	r := gin.New()
	r.POST("/grades", BodyLimit(4), func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/grades", strings.NewReader("too long body")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected handler's 400 to stand, got %d", w.Code)
	}
}

func TestSecurityHeaders_NoStoreOutsideHealth(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/health", ok)
	r.GET("/api/v1/grades", ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/grades", nil))
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("grade data: expected no-store, got %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY, got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if got := w.Header().Get("Cache-Control"); got != "" {
		t.Errorf("health: expected no Cache-Control, got %q", got)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://sekolah.local/", "*"}))
	r.GET("/api/v1/subjects", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := func(origin string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("OPTIONS", "/api/v1/subjects", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("http://sekolah.local")
	if w.Code != http.StatusNoContent {
		t.Fatalf("listed origin: expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("listed origin should be allowed credentials")
	}
	if w.Header().Get("Vary") != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", w.Header().Get("Vary"))
	}

	w = preflight("http://lain.local")
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "http://lain.local" {
		t.Fatalf("wildcard origin: got %d %q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("wildcard origin must not get credentials")
	}

	strict := gin.New()
	strict.Use(CORS([]string{"http://sekolah.local"}))
	strict.GET("/api/v1/subjects", func(c *gin.Context) { c.Status(http.StatusOK) })
	w = httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/api/v1/subjects", nil)
	req.Header.Set("Origin", "http://evil.local")
	strict.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("unlisted origin preflight: expected 403, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/subjects", nil)
	req.Header.Set("Origin", "http://evil.local")
	strict.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unlisted origin simple request: got %d %q", w.Code, w.Header().Get("Access-Control-Allow-Origin"))
	}
}
