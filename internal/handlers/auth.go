package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chorely/chorely/internal/models"
	"github.com/chorely/chorely/internal/services"
	pkghttp "github.com/chorely/chorely/pkg/http"
)

// RateLimitedMessage is returned with every 429 on the login route
const RateLimitedMessage = "Too many login attempts from this IP, please try again after 15 minutes."

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, username, email, password string) (*services.AuthResponse, error)
	Login(ctx context.Context, email, password, ipAddress string) (*services.AuthResponse, error)
	RefreshSession(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginRequest represents the request body for login.
// Email format is not validated here so every attempt reaches the limiter.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest is the body of both refresh and logout
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// SessionResponse wraps the tokens issued by register and login
type SessionResponse struct {
	Message string                 `json:"message"`
	Data    *services.AuthResponse `json:"data"`
}

// Register handles user registration
// @Summary User registration
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 201 {object} SessionResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		pkghttp.WriteBadRequest(w, "Username, email, or password cannot be empty!")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	authResp, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUsernameExists):
			pkghttp.WriteBadRequest(w, "Username already exists!")
		case errors.Is(err, models.ErrEmailExists):
			pkghttp.WriteBadRequest(w, "Email already exists!")
		case errors.Is(err, models.ErrValidation):
			pkghttp.WriteBadRequest(w, "Username, email, or password cannot be empty!")
		default:
			h.writeInternal(w, "register", err)
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, SessionResponse{
		Message: "New user registered successfully",
		Data:    authResp,
	})
}

// Login handles user login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Email and password are required.")
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress)
	if err != nil {
		var rle *models.RateLimitError
		switch {
		case errors.As(err, &rle):
			pkghttp.WriteRateLimited(w, rle.RetryAfter, RateLimitedMessage)
		case errors.Is(err, models.ErrRateLimitExceeded):
			pkghttp.WriteTooManyRequests(w, RateLimitedMessage)
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Invalid credentials.")
		default:
			h.writeInternal(w, "login", err)
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{
		Message: "User logged in",
		Data:    authResp,
	})
}

// RefreshToken rotates a refresh token
// @Summary Refresh access token
// @Accept json
// @Param request body RefreshTokenRequest true "Refresh token request"
// @Produce json
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Refresh token is required.")
		return
	}

	authResp, err := h.service.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRefreshToken) {
			pkghttp.WriteForbidden(w, "Invalid refresh token.")
			return
		}
		h.writeInternal(w, "refresh", err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// Logout revokes a refresh token. It needs no access token.
// @Summary User logout
// @Accept json
// @Param request body RefreshTokenRequest true "Refresh token request"
// @Produce json
// @Success 200 {object} pkghttp.MessageResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, "Refresh token is required.")
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, models.ErrRefreshTokenNotFound) {
			pkghttp.WriteNotFound(w, "Refresh token not found.")
			return
		}
		h.writeInternal(w, "logout", err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Logged out successfully.")
}

// writeInternal never leaks err to the client
func (h *AuthHandler) writeInternal(w http.ResponseWriter, op string, err error) {
	if !errors.Is(err, models.ErrInternalServer) {
		h.logger.Error("unexpected auth error", slog.String("operation", op), slog.Any("error", err))
	}
	pkghttp.WriteInternalError(w, "Internal server error")
}
