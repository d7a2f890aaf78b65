package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/chorely/chorely/internal/auth"
	"github.com/chorely/chorely/internal/models"
	"github.com/chorely/chorely/internal/observability"
)

// RefreshTokenRepository stores each user's refresh-token set.
// Rotate and Remove must be atomic per user record.
type RefreshTokenRepository interface {
	AddRefreshToken(ctx context.Context, userID, token string) error
	// RotateRefreshToken swaps oldToken for newToken on whichever user holds
	// oldToken and returns that user. models.ErrNotFound when nobody holds it.
	RotateRefreshToken(ctx context.Context, oldToken, newToken string) (*models.User, error)
	// RemoveRefreshToken reports whether a token was actually removed.
	RemoveRefreshToken(ctx context.Context, token string) (bool, error)
}

// AuthResponse is the token pair returned by register, login and refresh.
// ExpiresIn is the access token lifetime in seconds.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// RefreshTokenService issues, rotates and revokes opaque refresh tokens
type RefreshTokenService struct {
	repo     RefreshTokenRepository
	tm       *auth.TokenManager
	generate func() (string, error)
	logger   *slog.Logger
}

// NewRefreshTokenService creates a new RefreshTokenService
func NewRefreshTokenService(repo RefreshTokenRepository, tm *auth.TokenManager, logger *slog.Logger) *RefreshTokenService {
	return &RefreshTokenService{
		repo:     repo,
		tm:       tm,
		generate: auth.GenerateRefreshToken,
		logger:   logger,
	}
}

// IssueFor generates a refresh token and appends it to the user's set
func (s *RefreshTokenService) IssueFor(ctx context.Context, user *models.User) (string, error) {
	token, err := s.generate()
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		observability.CaptureError(ctx, "refresh_token.issue", err)
		return "", models.ErrInternalServer
	}

	if err := s.repo.AddRefreshToken(ctx, user.ID, token); err != nil {
		s.logger.Error("failed to store refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		observability.CaptureError(ctx, "refresh_token.issue", err)
		return "", models.ErrInternalServer
	}

	return token, nil
}

// Rotate consumes presented and returns a fresh token pair for the same user.
// A token works for exactly one rotation; replaying it yields
// models.ErrInvalidRefreshToken.
func (s *RefreshTokenService) Rotate(ctx context.Context, presented string) (*AuthResponse, error) {
	if presented = strings.TrimSpace(presented); presented == "" {
		return nil, models.ErrInvalidRefreshToken
	}

	next, err := s.generate()
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.Any("error", err))
		observability.CaptureError(ctx, "refresh_token.rotate", err)
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.RotateRefreshToken(ctx, presented, next)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidRefreshToken
		}
		s.logger.Error("failed to rotate refresh token", slog.Any("error", err))
		observability.CaptureError(ctx, "refresh_token.rotate", err)
		return nil, models.ErrInternalServer
	}

	access, _, err := s.tm.IssueAccessToken(models.IdentityOf(user))
	if err != nil {
		s.logger.Error("failed to issue access token", slog.String("user_id", user.ID), slog.Any("error", err))
		observability.CaptureError(ctx, "refresh_token.rotate", err)
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		Token:        access,
		RefreshToken: next,
		ExpiresIn:    int64(s.tm.AccessTokenExpiry().Seconds()),
	}, nil
}

// Revoke removes presented from whichever user holds it
func (s *RefreshTokenService) Revoke(ctx context.Context, presented string) (bool, error) {
	if presented = strings.TrimSpace(presented); presented == "" {
		return false, nil
	}

	removed, err := s.repo.RemoveRefreshToken(ctx, presented)
	if err != nil {
		s.logger.Error("failed to revoke refresh token", slog.Any("error", err))
		observability.CaptureError(ctx, "refresh_token.revoke", err)
		return false, models.ErrInternalServer
	}
	return removed, nil
}
