package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/chorely/chorely/internal/auth"
	"github.com/chorely/chorely/internal/metrics"
	"github.com/chorely/chorely/internal/models"
	"github.com/chorely/chorely/internal/observability"
	pkgauth "github.com/chorely/chorely/pkg/auth"
	pkglogger "github.com/chorely/chorely/pkg/logger"
)

// UserRepository is the credential store used by the session service.
// Reads leave PasswordHash empty except GetByEmailWithPassword.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmailWithPassword(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// AuthService orchestrates sessions. A session has no stored state; it is
// the pair of tokens the client holds:
//
//	Anonymous     --Register/Login-->  Authenticated
//	Authenticated --RefreshSession-->  Authenticated (pair rotated, old refresh token dead)
//	Authenticated --Logout---------->  Anonymous     (refresh token removed)
//
// The access token stays valid until it expires; only the refresh token can
// be revoked.
type AuthService struct {
	users       UserRepository
	refresh     *RefreshTokenService
	limiter     *RateLimitService
	tm          *auth.TokenManager
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	metrics     *metrics.Metrics
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserRepository,
	refresh *RefreshTokenService,
	limiter *RateLimitService,
	tm *auth.TokenManager,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		users:       users,
		refresh:     refresh,
		limiter:     limiter,
		tm:          tm,
		logger:      logger,
		auditLogger: auditLogger,
		metrics:     m,
	}
}

// NormalizeEmail is applied on both register and login
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and opens its first session.
// Username uniqueness is checked before email.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, models.ErrValidation
	}
	if len(password) > pkgauth.MaxPasswordLen {
		return nil, models.ErrValidation
	}

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		s.registerFailed(ctx, email, err)
		return nil, err
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, s.internal(ctx, "register", "failed to hash password", err)
	}

	user, err := s.users.Create(ctx, &models.User{
		Username:      username,
		Email:         email,
		PasswordHash:  hash,
		RefreshTokens: []string{},
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, models.ErrUsernameExists) || errors.Is(err, models.ErrEmailExists) {
			s.registerFailed(ctx, email, err)
			return nil, err
		}
		return nil, s.internal(ctx, "register", "failed to create user", err)
	}

	resp, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventRegister,
		UserID:    user.ID,
		Email:     email,
		Success:   true,
	})
	s.metrics.AuthEvent(pkglogger.EventRegister, metrics.OutcomeSuccess)
	return resp, nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return models.ErrUsernameExists
	} else if !errors.Is(err, models.ErrNotFound) {
		return s.internal(ctx, "register", "failed to look up username", err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return models.ErrEmailExists
	} else if !errors.Is(err, models.ErrNotFound) {
		return s.internal(ctx, "register", "failed to look up email", err)
	}

	return nil
}

func (s *AuthService) registerFailed(ctx context.Context, email string, err error) {
	if errors.Is(err, models.ErrInternalServer) {
		return
	}
	reason := "email_exists"
	if errors.Is(err, models.ErrUsernameExists) {
		reason = "username_exists"
	}
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventRegister,
		Email:         email,
		Success:       false,
		FailureReason: reason,
	})
	s.metrics.AuthEvent(pkglogger.EventRegister, metrics.OutcomeFailure)
}

// Login authenticates by email and password. The limiter runs first, so a
// throttled client never reaches the store or the hasher. Unknown email and
// wrong password are reported identically.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress string) (*AuthResponse, error) {
	if err := s.limiter.Allow(ipAddress); err != nil {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
			EventType:     pkglogger.EventLogin,
			IPAddress:     ipAddress,
			Success:       false,
			FailureReason: "rate_limited",
		})
		s.metrics.AuthEvent(pkglogger.EventLogin, metrics.OutcomeRateLimited)
		return nil, err
	}

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		s.loginFailed(ctx, "", email, ipAddress)
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkgauth.VerifyDecoy(password)
			s.loginFailed(ctx, "", email, ipAddress)
			return nil, models.ErrInvalidCredentials
		}
		return nil, s.internal(ctx, "login", "failed to get user by email", err)
	}

	if !pkgauth.VerifyPassword(user.PasswordHash, password) {
		if pkgauth.IsMalformedHash(user.PasswordHash) {
			s.logger.Error("stored password hash is malformed", slog.String("user_id", user.ID))
		}
		s.loginFailed(ctx, user.ID, email, ipAddress)
		return nil, models.ErrInvalidCredentials
	}

	if pkgauth.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	resp, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogin,
		UserID:    user.ID,
		Email:     email,
		IPAddress: ipAddress,
		Success:   true,
	})
	s.metrics.AuthEvent(pkglogger.EventLogin, metrics.OutcomeSuccess)
	return resp, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, email, ipAddress string) {
	s.logger.Info("login failed: invalid credentials")
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventLogin,
		UserID:        userID,
		Email:         email,
		IPAddress:     ipAddress,
		Success:       false,
		FailureReason: "invalid_credentials",
	})
	s.metrics.AuthEvent(pkglogger.EventLogin, metrics.OutcomeFailure)
}

// upgradeHash replaces a legacy hash. Failure keeps the old hash and does not
// fail the login.
func (s *AuthService) upgradeHash(ctx context.Context, userID, password string) {
	hash, err := pkgauth.HashPassword(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		s.logger.Warn("failed to upgrade legacy password hash", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	s.logger.Info("upgraded legacy password hash", slog.String("user_id", userID))
}

// RefreshSession rotates the presented refresh token
func (s *AuthService) RefreshSession(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	resp, err := s.refresh.Rotate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRefreshToken) {
			s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
				EventType:     pkglogger.EventRefresh,
				Success:       false,
				FailureReason: "invalid_refresh_token",
			})
			s.metrics.AuthEvent(pkglogger.EventRefresh, metrics.OutcomeFailure)
		} else {
			s.metrics.AuthEvent(pkglogger.EventRefresh, metrics.OutcomeError)
		}
		return nil, err
	}

	s.metrics.AuthEvent(pkglogger.EventRefresh, metrics.OutcomeSuccess)
	return resp, nil
}

// Logout revokes the presented refresh token. No access token is needed.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	removed, err := s.refresh.Revoke(ctx, refreshToken)
	if err != nil {
		s.metrics.AuthEvent(pkglogger.EventLogout, metrics.OutcomeError)
		return err
	}
	if !removed {
		s.metrics.AuthEvent(pkglogger.EventLogout, metrics.OutcomeFailure)
		return models.ErrRefreshTokenNotFound
	}

	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLogout,
		Success:   true,
	})
	s.metrics.AuthEvent(pkglogger.EventLogout, metrics.OutcomeSuccess)
	return nil
}

// openSession issues an access token and stores one new refresh token
func (s *AuthService) openSession(ctx context.Context, user *models.User) (*AuthResponse, error) {
	access, _, err := s.tm.IssueAccessToken(models.IdentityOf(user))
	if err != nil {
		return nil, s.internal(ctx, "session", "failed to issue access token", err)
	}

	refresh, err := s.refresh.IssueFor(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token:        access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tm.AccessTokenExpiry().Seconds()),
	}, nil
}

// internal logs and reports a backend error and collapses it
func (s *AuthService) internal(ctx context.Context, op, msg string, err error) error {
	s.logger.Error(msg, slog.String("operation", op), slog.Any("error", err))
	observability.CaptureError(ctx, op, err)
	s.metrics.AuthEvent(op, metrics.OutcomeError)
	return models.ErrInternalServer
}
