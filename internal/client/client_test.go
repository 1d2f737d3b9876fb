package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/api/middleware"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/autosave"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/grading"
	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/pkg/response"
)

var _ autosave.Saver = (*API)(nil)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeServer records what the client sent
type fakeServer struct {
	mu      sync.Mutex
	auth    []string
	rids    []string
	bodies  []map[string]json.RawMessage
	version int
}

func (s *fakeServer) record(c *gin.Context) map[string]json.RawMessage {
	raw, _ := io.ReadAll(c.Request.Body)
	var body map[string]json.RawMessage
	_ = json.Unmarshal(raw, &body)
	s.mu.Lock()
	s.auth = append(s.auth, c.GetHeader("Authorization"))
	s.rids = append(s.rids, middleware.RequestIDFromContext(c.Request.Context()))
	s.bodies = append(s.bodies, body)
	s.mu.Unlock()
	return body
}

func newTestServer(t *testing.T, s *fakeServer) *API {
	t.Helper()
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/api/v1/auth/login", func(c *gin.Context) {
		var req dto.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Password != "rahasia123" {
			response.Unauthorized(c, 11001, "Email atau password salah")
			return
		}
		response.OK(c, dto.TokenResponse{AccessToken: "tok-1", ExpiresIn: 1800})
	})
	r.GET("/api/v1/subjects/:id", func(c *gin.Context) {
		s.record(c)
		score := 80.0
		response.OK(c, dto.SubjectDetailResponse{
			SubjectResponse: dto.SubjectResponse{ID: c.Param("id"), Name: "Matematika"},
			Students: []dto.StudentResponse{{
				ID:    "s1",
				Name:  "Ani",
				Grade: &dto.GradeResponse{ID: "g1", StudentID: "s1", Version: 3, Scores: grading.Scores{"lm1_sum": &score}},
			}},
		})
	})
	r.PATCH("/api/v1/grades/:id", func(c *gin.Context) {
		body := s.record(c)
		if v, ok := body["version"]; ok && string(v) != "3" {
			response.Conflict(c, 14003, "Data telah diubah, muat ulang halaman")
			return
		}
		s.mu.Lock()
		s.version++
		version := s.version
		s.mu.Unlock()
		response.OK(c, dto.GradeResponse{ID: c.Param("id"), Version: version})
	})
	r.PATCH("/api/v1/students/:id", func(c *gin.Context) {
		s.record(c)
		response.NotFound(c, 13001, "Siswa tidak ditemukan")
	})
	r.GET("/api/v1/broken", func(c *gin.Context) {
		c.String(http.StatusBadGateway, "upstream down")
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api/v1/")
}

func TestLogin_StoresToken(t *testing.T) {
	s := &fakeServer{version: 3}
	api := newTestServer(t, s)

	if _, err := api.Login(context.Background(), "sari@sekolah.id", "rahasia123"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	score := 90.0
	if err := api.SaveGrade(context.Background(), "g1", map[string]*float64{"lm2_sum": &score, "final_score": nil}); err != nil {
		t.Fatalf("SaveGrade: %v", err)
	}

	if s.auth[0] != "Bearer tok-1" {
		t.Errorf("expected bearer token, got %q", s.auth[0])
	}
	body := s.bodies[0]
	if string(body["lm2_sum"]) != "90" {
		t.Errorf("expected lm2_sum 90, got %s", body["lm2_sum"])
	}
	if string(body["final_score"]) != "null" {
		t.Errorf("expected explicit null final_score, got %s", body["final_score"])
	}
	if _, ok := body["version"]; ok {
		t.Error("version must not be sent without WithVersionCheck")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	api := newTestServer(t, &fakeServer{})

	_, err := api.Login(context.Background(), "sari@sekolah.id", "salah")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Code != 11001 {
		t.Errorf("expected 401/11001, got %d/%d", apiErr.Status, apiErr.Code)
	}
}

func TestSave_RequiresLogin(t *testing.T) {
	api := newTestServer(t, &fakeServer{})

	if err := api.SaveGrade(context.Background(), "g1", nil); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestSaveGrade_VersionCheck(t *testing.T) {
	s := &fakeServer{version: 3}
	api := newTestServer(t, s)
	api.versionCheck = true
	api.SetToken("tok-1")

	if _, err := api.Subject(context.Background(), "m1"); err != nil {
		t.Fatalf("Subject: %v", err)
	}
	score := 70.0
	fields := map[string]*float64{"lm1_sum": &score}

	if err := api.SaveGrade(context.Background(), "g1", fields); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if got := string(s.bodies[1]["version"]); got != "3" {
		t.Errorf("expected version 3 from the subject load, got %s", got)
	}

	// the server now holds version 4; the client sends it and the fake rejects anything but 3
	err := api.SaveGrade(context.Background(), "g1", fields)
	if got := string(s.bodies[2]["version"]); got != "4" {
		t.Errorf("expected version 4 from the last response, got %s", got)
	}
	if !IsConflict(err) {
		t.Errorf("expected a conflict, got %v", err)
	}
}

func TestSaveStudent_ErrorEnvelope(t *testing.T) {
	s := &fakeServer{}
	api := newTestServer(t, s)
	api.SetToken("tok-1")

	name := "Ani Lestari"
	err := api.SaveStudent(context.Background(), "s9", map[string]*string{"name": &name, "notes": nil})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 13001 {
		t.Fatalf("expected APIError 13001, got %v", err)
	}
	if string(s.bodies[0]["name"]) != `"Ani Lestari"` || string(s.bodies[0]["notes"]) != "null" {
		t.Errorf("unexpected body %v", s.bodies[0])
	}
	if apiErr.RequestID == "" || apiErr.RequestID != s.rids[0] {
		t.Errorf("error request id %q does not match server's %q", apiErr.RequestID, s.rids[0])
	}
}

func TestSave_DistinctRequestIDs(t *testing.T) {
	s := &fakeServer{version: 2}
	api := newTestServer(t, s)
	api.SetToken("tok-1")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = api.SaveGrade(ctx, "g1", map[string]*float64{})
	}
	if len(s.rids) != 3 {
		t.Fatalf("expected 3 recorded calls, got %d", len(s.rids))
	}
	seen := map[string]bool{}
	for _, rid := range s.rids {
		if len(rid) != 36 || seen[rid] {
			t.Errorf("expected a fresh uuid per call, got %q", rid)
		}
		seen[rid] = true
	}
}

func TestDo_NonJSONError(t *testing.T) {
	api := newTestServer(t, &fakeServer{})

	err := api.do(context.Background(), http.MethodGet, "/broken", nil, nil, false)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "upstream down" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestCoordinator_OverHTTP(t *testing.T) {
	s := &fakeServer{version: 3}
	api := newTestServer(t, s)
	api.SetToken("tok-1")

	c := autosave.New(api, nil, autosave.Options{})
	ninety := 90.0
	c.LoadGrade("g1", grading.Scores{"lm2_sum": &ninety})

	if err := c.OnBlur("g1", "lm1_sum", "80"); err != nil {
		t.Fatalf("OnBlur: %v", err)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(s.bodies) != 1 {
		t.Fatalf("expected 1 request, got %d", len(s.bodies))
	}
	body := s.bodies[0]
	if string(body["lm1_sum"]) != "80" || string(body["final_score"]) != "85" {
		t.Errorf("expected lm1_sum 80 and final_score 85 in one request, got %v", body)
	}
}
