package services_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/chorely/chorely/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// MockUserRepository implements UserRepository with overridable funcs
type MockUserRepository struct {
	GetByIDFunc                func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc             func(ctx context.Context, email string) (*models.User, error)
	GetByEmailWithPasswordFunc func(ctx context.Context, email string) (*models.User, error)
	GetByUsernameFunc          func(ctx context.Context, username string) (*models.User, error)
	CreateFunc                 func(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordHashFunc     func(ctx context.Context, id, hash string) error

	calls []string
}

func (m *MockUserRepository) record(name string) {
	m.calls = append(m.calls, name)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.record("GetByID")
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.record("GetByEmail")
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	m.record("GetByEmailWithPassword")
	if m.GetByEmailWithPasswordFunc != nil {
		return m.GetByEmailWithPasswordFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.record("GetByUsername")
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	m.record("Create")
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	m.record("UpdatePasswordHash")
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, id, hash)
	}
	return nil
}

// memStore is an in-memory credential store with the same atomicity as the
// real backends: every token operation holds the lock for its whole
// read-modify-write.
type memStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	nextID int
}

func newMemStore() *memStore {
	return &memStore{users: make(map[string]*models.User)}
}

func (s *memStore) copyOut(u *models.User, withPassword bool) *models.User {
	out := *u
	out.RefreshTokens = slices.Clone(u.RefreshTokens)
	if !withPassword {
		out.PasswordHash = ""
	}
	return &out
}

func (s *memStore) find(match func(*models.User) bool) *models.User {
	for _, u := range s.users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return s.copyOut(u, false), nil
	}
	return nil, models.ErrNotFound
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.find(func(u *models.User) bool { return u.Email == email }); u != nil {
		return s.copyOut(u, false), nil
	}
	return nil, models.ErrNotFound
}

func (s *memStore) GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.find(func(u *models.User) bool { return u.Email == email }); u != nil {
		return s.copyOut(u, true), nil
	}
	return nil, models.ErrNotFound
}

func (s *memStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.find(func(u *models.User) bool { return u.Username == username }); u != nil {
		return s.copyOut(u, false), nil
	}
	return nil, models.ErrNotFound
}

func (s *memStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(func(u *models.User) bool { return u.Username == user.Username }) != nil {
		return nil, models.ErrUsernameExists
	}
	if s.find(func(u *models.User) bool { return u.Email == user.Email }) != nil {
		return nil, models.ErrEmailExists
	}
	s.nextID++
	stored := *user
	stored.ID = fmt.Sprintf("user-%d", s.nextID)
	stored.RefreshTokens = []string{}
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.users[stored.ID] = &stored
	return s.copyOut(&stored, false), nil
}

func (s *memStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (s *memStore) AddRefreshToken(ctx context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return models.ErrNotFound
	}
	u.RefreshTokens = append(u.RefreshTokens, token)
	return nil
}

func (s *memStore) RotateRefreshToken(ctx context.Context, oldToken, newToken string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.find(func(u *models.User) bool { return slices.Contains(u.RefreshTokens, oldToken) })
	if u == nil {
		return nil, models.ErrNotFound
	}
	u.RefreshTokens = slices.DeleteFunc(u.RefreshTokens, func(t string) bool { return t == oldToken })
	u.RefreshTokens = append(u.RefreshTokens, newToken)
	return s.copyOut(u, false), nil
}

func (s *memStore) RemoveRefreshToken(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.find(func(u *models.User) bool { return slices.Contains(u.RefreshTokens, token) })
	if u == nil {
		return false, nil
	}
	u.RefreshTokens = slices.DeleteFunc(u.RefreshTokens, func(t string) bool { return t == token })
	return true, nil
}

func (s *memStore) tokensOf(email string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) }); u != nil {
		return slices.Clone(u.RefreshTokens)
	}
	return nil
}

func (s *memStore) hashOf(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.find(func(u *models.User) bool { return u.Email == email }); u != nil {
		return u.PasswordHash
	}
	return ""
}

// MockRefreshTokenRepository implements RefreshTokenRepository with overridable funcs
type MockRefreshTokenRepository struct {
	AddRefreshTokenFunc    func(ctx context.Context, userID, token string) error
	RotateRefreshTokenFunc func(ctx context.Context, oldToken, newToken string) (*models.User, error)
	RemoveRefreshTokenFunc func(ctx context.Context, token string) (bool, error)
}

func (m *MockRefreshTokenRepository) AddRefreshToken(ctx context.Context, userID, token string) error {
	if m.AddRefreshTokenFunc != nil {
		return m.AddRefreshTokenFunc(ctx, userID, token)
	}
	return nil
}

func (m *MockRefreshTokenRepository) RotateRefreshToken(ctx context.Context, oldToken, newToken string) (*models.User, error) {
	if m.RotateRefreshTokenFunc != nil {
		return m.RotateRefreshTokenFunc(ctx, oldToken, newToken)
	}
	return nil, models.ErrNotFound
}

func (m *MockRefreshTokenRepository) RemoveRefreshToken(ctx context.Context, token string) (bool, error) {
	if m.RemoveRefreshTokenFunc != nil {
		return m.RemoveRefreshTokenFunc(ctx, token)
	}
	return false, nil
}
