package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atlas-hitl/review-plane/config"
	"github.com/atlas-hitl/review-plane/internal/shared"
	"github.com/atlas-hitl/review-plane/models"
	"github.com/atlas-hitl/review-plane/repositories"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Claims are the session token claims
type Claims struct {
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name"`
	Role        models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Service handles account registration, login and session token validation.
// Tokens are HS256-signed with a shared secret; passwords are bcrypt-hashed.
type Service struct {
	userRepo repositories.UserRepository
	cfg      config.AuthConfig
	logger   *zap.Logger
}

// NewService creates an auth service
func NewService(userRepo repositories.UserRepository, cfg config.AuthConfig, logger *zap.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register creates a new account and returns it with a session token
func (s *Service) Register(ctx context.Context, email, displayName, password string, role models.UserRole) (*models.User, string, error) {
	if role != models.RoleUser && role != models.RoleApprover {
		role = models.RoleUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.NewUser(email, displayName, role, string(hash))
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	return user, token, nil
}

// Login verifies credentials and returns the account with a session token
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, "", shared.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	s.logger.Debug("user logged in", zap.String("user_id", user.ID.String()))
	return user, token, nil
}

// issueToken signs a session token for the user
func (s *Service) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", shared.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, shared.ErrUnauthorized
	}

	return claims, nil
}
