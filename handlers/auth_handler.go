package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/atlas-hitl/review-plane/middleware"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/services/auth"
	"github.com/atlas-hitl/review-plane/utils"
	"go.uber.org/zap"
)

// RegisterRequest represents an account registration request
type RegisterRequest struct {
	Email       string          `json:"email" validate:"required,email"`
	DisplayName string          `json:"display_name" validate:"required,max=255"`
	Password    string          `json:"password" validate:"required,min=8,max=128"`
	Role        models.UserRole `json:"role" validate:"omitempty,oneof=user approver"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is the response for register and login
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authSvc  *auth.Service
	tokenTTL time.Duration
	secure   bool // Secure flag on the auth cookie
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authSvc *auth.Service, tokenTTL time.Duration, secure bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authSvc:  authSvc,
		tokenTTL: tokenTTL,
		secure:   secure,
		logger:   logger,
	}
}

// HandleRegister handles POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, token, err := h.authSvc.Register(ctx, req.Email, req.DisplayName, req.Password, req.Role)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.setAuthCookie(w, token)
	_ = utils.WriteCreated(w, AuthResponse{User: user, Token: token})
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, token, err := h.authSvc.Login(ctx, req.Email, req.Password)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.setAuthCookie(w, token)
	_ = utils.WriteOK(w, AuthResponse{User: user, Token: token})
}

// HandleLogout handles POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	utils.WriteNoContent(w)
}

// CurrentUserResponse is the response body for GET /auth/me
type CurrentUserResponse struct {
	Sub         string          `json:"sub"`
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name"`
	Role        models.UserRole `json:"role"`
}

// HandleMe handles GET /auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	_ = utils.WriteOK(w, CurrentUserResponse{
		Sub:         claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	})
}

// setAuthCookie sets the session cookie alongside the token response
func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
