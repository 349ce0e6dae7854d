package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lucasgodgig/busca-ponto-saas/internal/config"
	"github.com/lucasgodgig/busca-ponto-saas/internal/database"
	"github.com/lucasgodgig/busca-ponto-saas/internal/logger"
	"github.com/lucasgodgig/busca-ponto-saas/internal/models"
	"github.com/lucasgodgig/busca-ponto-saas/pkg/auth"
)

type AuthService struct {
	db  *database.DB
	cfg *config.Config
}

func NewAuthService(db *database.DB, cfg *config.Config) *AuthService {
	return &AuthService{db: db, cfg: cfg}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register creates a password-login user account.
func (s *AuthService) Register(name, email, password string) (*models.User, error) {
	log := logger.GetLogger("services.auth")

	var existing models.User
	err := s.db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		OpenID:      uuid.NewString(),
		Name:        name,
		Email:       email,
		Password:    hashed,
		LoginMethod: "password",
		Role:        models.RoleMember,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	log.Infof("User registered: id=%d email=%s", user.ID, user.Email)
	return &user, nil
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *AuthService) Login(email, password string) (*models.User, *TokenPair, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !auth.CheckPassword(password, user.Password) {
		return nil, nil, ErrInvalidCredentials
	}

	access, refresh, err := auth.GenerateTokenPair(
		user.ID,
		s.cfg.JWTSecretKey,
		s.cfg.JWTAccessTokenExpireMin,
		s.cfg.JWTRefreshTokenExpireDays,
	)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	s.db.Model(&user).UpdateColumn("last_signed_in", now)
	user.LastSignedIn = &now

	return &user, &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	claims, err := auth.ValidateRefreshToken(refreshToken, s.cfg.JWTSecretKey)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	if err := s.db.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	access, refresh, err := auth.GenerateTokenPair(
		user.ID,
		s.cfg.JWTSecretKey,
		s.cfg.JWTAccessTokenExpireMin,
		s.cfg.JWTRefreshTokenExpireDays,
	)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Me loads the authenticated user's profile with tenant memberships.
func (s *AuthService) Me(userID uint) (*models.User, error) {
	var user models.User
	err := s.db.Preload("Memberships.Tenant").First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
