// Package client talks to the grading API on behalf of an editing session.
// *API satisfies autosave.Saver.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Barr-404/PENILAIAN-SEKOLAH-DASAR/internal/dto"
)

// maxErrorBody caps how much of a non-JSON error body is kept
const maxErrorBody = 4 << 10

// Error codes the client reacts to
const (
	CodeUnauthorized   = 10002
	CodeOptimisticLock = 14003
)

// ErrNotLoggedIn returned when a request needs a token and none is set
var ErrNotLoggedIn = errors.New("client: not logged in")

// APIError non-zero envelope code or non-2xx status
type APIError struct {
	Status    int
	Code      int
	Message   string
	Details   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api: %d %s (%d): %s", e.Status, e.Message, e.Code, e.Details)
	}
	return fmt.Sprintf("api: %d %s (%d)", e.Status, e.Message, e.Code)
}

// IsConflict reports a stale version
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeOptimisticLock
}

// Option configures an API
type Option func(*API)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(a *API) { a.http = hc }
}

// WithTimeout per-request timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(a *API) {
		if d > 0 {
			a.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(a *API) { a.logger = l }
}

// WithVersionCheck makes grade writes conditional on the last version this
// client saw for the record. Off by default: two cells of one row saved
// concurrently would otherwise reject each other.
func WithVersionCheck() Option {
	return func(a *API) { a.versionCheck = true }
}

// API HTTP client for /api/v1
type API struct {
	baseURL      string
	http         *http.Client
	logger       *zap.Logger
	versionCheck bool

	mu       sync.Mutex
	token    string
	versions map[string]int // grade id → last seen version
}

// New creates a client for baseURL, e.g. http://localhost:8080/api/v1
func New(baseURL string, opts ...Option) *API {
	a := &API{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   zap.NewNop(),
		versions: make(map[string]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetToken uses an existing access token
func (a *API) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

// Login authenticates and keeps the access token for later requests
func (a *API) Login(ctx context.Context, email, password string) (*dto.TokenResponse, error) {
	var out dto.TokenResponse
	req := dto.LoginRequest{Email: email, Password: password}
	if err := a.do(ctx, http.MethodPost, "/auth/login", req, &out, false); err != nil {
		return nil, err
	}
	a.SetToken(out.AccessToken)
	return &out, nil
}

// Subjects lists the caller's subjects
func (a *API) Subjects(ctx context.Context) ([]dto.SubjectResponse, error) {
	var out struct {
		List []dto.SubjectResponse `json:"list"`
	}
	if err := a.do(ctx, http.MethodGet, "/subjects", nil, &out, true); err != nil {
		return nil, err
	}
	return out.List, nil
}

// Subject one subject with its students and their grades
func (a *API) Subject(ctx context.Context, subjectID string) (*dto.SubjectDetailResponse, error) {
	var out dto.SubjectDetailResponse
	if err := a.do(ctx, http.MethodGet, "/subjects/"+url.PathEscape(subjectID), nil, &out, true); err != nil {
		return nil, err
	}
	for _, st := range out.Students {
		if st.Grade != nil {
			a.seen(st.Grade.ID, st.Grade.Version)
		}
	}
	return &out, nil
}

// EnsureGrade returns the grade of a student, creating an empty one when
// the student has none
func (a *API) EnsureGrade(ctx context.Context, studentID string) (*dto.GradeResponse, error) {
	var out dto.GradeResponse
	body := map[string]string{"student_id": studentID}
	if err := a.do(ctx, http.MethodPost, "/grades", body, &out, true); err != nil {
		return nil, err
	}
	a.seen(out.ID, out.Version)
	return &out, nil
}

// SaveGrade PATCH /grades/:id with the given fields; nil values are sent as null
func (a *API) SaveGrade(ctx context.Context, gradeID string, fields map[string]*float64) error {
	body := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	if a.versionCheck {
		a.mu.Lock()
		if v, ok := a.versions[gradeID]; ok {
			body["version"] = v
		}
		a.mu.Unlock()
	}

	var out dto.GradeResponse
	if err := a.do(ctx, http.MethodPatch, "/grades/"+url.PathEscape(gradeID), body, &out, true); err != nil {
		return err
	}
	a.seen(gradeID, out.Version)
	return nil
}

// SaveStudent PATCH /students/:id with the given text fields
func (a *API) SaveStudent(ctx context.Context, studentID string, fields map[string]*string) error {
	return a.do(ctx, http.MethodPatch, "/students/"+url.PathEscape(studentID), fields, nil, true)
}

func (a *API) seen(gradeID string, version int) {
	if gradeID == "" || version <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if version > a.versions[gradeID] {
		a.versions[gradeID] = version
	}
}

// envelope mirrors pkg/response.Response with a deferred data field
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details string          `json:"details"`
}

func (a *API) do(ctx context.Context, method, path string, in, out interface{}, auth bool) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	rid := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", rid)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		a.mu.Lock()
		token := a.token
		a.mu.Unlock()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if echoed := resp.Header.Get("X-Request-ID"); echoed != "" {
		rid = echoed
	}

	a.logger.Debug("api call",
		zap.String("request_id", rid),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw)), RequestID: rid}
	}
	if resp.StatusCode >= http.StatusBadRequest || env.Code != 0 {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message, Details: env.Details, RequestID: rid}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
