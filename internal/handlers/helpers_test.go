package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chorely/chorely/internal/auth"
	"github.com/chorely/chorely/internal/models"
	"github.com/chorely/chorely/internal/services"
	pkghttp "github.com/chorely/chorely/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRequest creates an HTTP request with a JSON body
func newTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// newRawRequest sends body verbatim
func newRawRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withAuthContext adds access-token claims the way AuthMiddleware does
func withAuthContext(req *http.Request, userID string) *http.Request {
	claims := &models.TokenClaims{UserID: userID, Username: "alice", Email: "alice@example.com"}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// withURLParam sets a chi route parameter without routing
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// assertJSONResponse checks the status and content type and decodes the body
func assertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "Failed to decode response JSON")
	}
}

// assertErrorResponse checks status, error code and message of an error body
func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError, expectedMessage string) {
	t.Helper()
	var resp pkghttp.ErrorResponse
	assertJSONResponse(t, w, expectedStatus, &resp)
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.Equal(t, expectedMessage, resp.Message)
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc       func(ctx context.Context, username, email, password string) (*services.AuthResponse, error)
	LoginFunc          func(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error)
	RefreshSessionFunc func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	LogoutFunc         func(ctx context.Context, refreshToken string) error
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password string) (*services.AuthResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RegisterFunc(ctx, username, email, password)
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, email, password, ipAddress)
}

func (m *MockAuthService) RefreshSession(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshSessionFunc == nil {
		return nil, models.ErrInvalidRefreshToken
	}
	return m.RefreshSessionFunc(ctx, refreshToken)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, refreshToken)
}

// MockTaskService implements TaskServiceInterface for testing
type MockTaskService struct {
	ListTasksFunc  func(ctx context.Context, owner string) ([]*models.Task, error)
	GetTaskFunc    func(ctx context.Context, owner, id string) (*models.Task, error)
	CreateTaskFunc func(ctx context.Context, owner, title, description string, completed bool) (*models.Task, error)
	UpdateTaskFunc func(ctx context.Context, owner, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTaskFunc func(ctx context.Context, owner, id string) (*models.Task, error)
}

func (m *MockTaskService) ListTasks(ctx context.Context, owner string) ([]*models.Task, error) {
	if m.ListTasksFunc == nil {
		return []*models.Task{}, nil
	}
	return m.ListTasksFunc(ctx, owner)
}

func (m *MockTaskService) GetTask(ctx context.Context, owner, id string) (*models.Task, error) {
	if m.GetTaskFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetTaskFunc(ctx, owner, id)
}

func (m *MockTaskService) CreateTask(ctx context.Context, owner, title, description string, completed bool) (*models.Task, error) {
	if m.CreateTaskFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateTaskFunc(ctx, owner, title, description, completed)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, owner, id string, patch models.TaskPatch) (*models.Task, error) {
	if m.UpdateTaskFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateTaskFunc(ctx, owner, id, patch)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, owner, id string) (*models.Task, error) {
	if m.DeleteTaskFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.DeleteTaskFunc(ctx, owner, id)
}

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context) error { return s.err }
