package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/chorely/chorely/internal/models"
)

// RateLimitConfig holds the login attempt window settings
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultRateLimitConfig allows 5 login attempts per IP every 15 minutes
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
	}
}

type attemptWindow struct {
	count       int
	windowStart time.Time
}

// RateLimitService counts login attempts per client IP in fixed windows.
// State lives in process memory; every attempt counts, successful or not,
// and a window only resets once it has fully elapsed.
type RateLimitService struct {
	mu       sync.Mutex
	attempts map[string]*attemptWindow
	config   RateLimitConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultRateLimitConfig().MaxAttempts
	}
	if config.Window <= 0 {
		config.Window = DefaultRateLimitConfig().Window
	}
	return &RateLimitService{
		attempts: make(map[string]*attemptWindow),
		config:   config,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the time source
func (s *RateLimitService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Allow records an attempt from ipAddress and returns a *models.RateLimitError
// when the attempt exceeds the window budget
func (s *RateLimitService) Allow(ipAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.attempts[ipAddress]
	if !ok || !now.Before(w.windowStart.Add(s.config.Window)) {
		w = &attemptWindow{windowStart: now}
		s.attempts[ipAddress] = w
	}

	w.count++
	if w.count > s.config.MaxAttempts {
		retryAfter := w.windowStart.Add(s.config.Window).Sub(now)
		s.logger.Warn("login rate limit exceeded",
			slog.String("ip_address", ipAddress),
			slog.Int("attempts", w.count),
			slog.Duration("retry_after", retryAfter))
		return &models.RateLimitError{RetryAfter: retryAfter}
	}

	return nil
}

// Prune drops windows that have elapsed at now and returns how many were removed.
// An elapsed window would be reset by the next Allow anyway.
func (s *RateLimitService) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for ip, w := range s.attempts {
		if !now.Before(w.windowStart.Add(s.config.Window)) {
			delete(s.attempts, ip)
			removed++
		}
	}
	return removed
}

// Now returns the limiter's current time
func (s *RateLimitService) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// Tracked returns the number of IPs with an open window
func (s *RateLimitService) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}
