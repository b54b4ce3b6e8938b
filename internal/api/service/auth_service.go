package service

import (
	"context"
	"errors"
	"time"

	"librarium/internal/api/models"
	"librarium/internal/api/repository"
	"librarium/internal/config"
	"librarium/internal/middleware/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the access-token claims carried between middleware and handlers.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*models.Member, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, member *models.Member, err error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (newAccessToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(tokenString string) (*Claims, error)
}

type authService struct {
	memberRepo       repository.MemberRepository
	refreshTokenRepo repository.RefreshTokenRepository
	jwtSecret        string
	accessTokenTTL   time.Duration
	refreshTokenTTL  time.Duration
}

func NewAuthService(
	memberRepo repository.MemberRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	cfg *config.Config,
) AuthService {
	return &authService{
		memberRepo:       memberRepo,
		refreshTokenRepo: refreshTokenRepo,
		jwtSecret:        cfg.JWTSecret,
		accessTokenTTL:   cfg.AccessTokenTTL,
		refreshTokenTTL:  cfg.RefreshTokenTTL,
	}
}

// Register creates a self-service member account with the default role.
func (s *authService) Register(ctx context.Context, name, email, password string) (*models.Member, error) {
	if _, err := s.memberRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	member := &models.Member{
		Name:     name,
		Email:    email,
		Password: hashed,
		Role:     models.RoleMember,
		Status:   models.MemberStatusActive,
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// Login authenticates a member and returns access and refresh tokens.
func (s *authService) Login(ctx context.Context, email, password string) (string, string, *models.Member, error) {
	member, err := s.memberRepo.FindByEmail(ctx, email)
	if err != nil {
		// Dummy compare to mitigate timing attacks (always take same time)
		auth.VerifyPassword("$2a$10$7EqJtq98hPqEX7fNZaFWoOHi6VbU5h6K9v8u5rO0m3j0h6dX5r8e", password)
		return "", "", nil, ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(member.Password, password); err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	if member.Status == models.MemberStatusSuspended {
		return "", "", nil, ErrInvalidCredentials
	}

	accessToken, err := s.generateAccessToken(member)
	if err != nil {
		return "", "", nil, err
	}

	refreshToken, err := s.generateRefreshToken(member)
	if err != nil {
		return "", "", nil, err
	}

	// Best-effort; login should not fail on this write.
	_ = s.memberRepo.UpdateLastLogin(ctx, member.ID)

	return accessToken, refreshToken, member, nil
}

func (s *authService) generateAccessToken(member *models.Member) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: member.ID,
		Email:  member.Email,
		Role:   member.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *authService) generateRefreshToken(member *models.Member) (string, error) {
	refreshToken := &models.RefreshToken{
		ID:        uuid.New().String(),
		MemberID:  member.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(s.refreshTokenTTL),
	}

	if err := s.refreshTokenRepo.Create(refreshToken); err != nil {
		return "", err
	}

	return refreshToken.Token, nil
}

func (s *authService) RefreshAccessToken(ctx context.Context, refreshTokenString string) (string, error) {
	refreshToken, err := s.refreshTokenRepo.FindByToken(refreshTokenString)
	if err != nil {
		return "", ErrInvalidToken
	}

	if time.Now().After(refreshToken.ExpiresAt) {
		_ = s.refreshTokenRepo.Delete(refreshToken.ID)
		return "", ErrExpiredToken
	}

	member, err := s.memberRepo.GetByID(ctx, refreshToken.MemberID)
	if err != nil {
		return "", ErrInvalidToken
	}

	return s.generateAccessToken(member)
}

// Logout revokes the presented refresh token.
func (s *authService) Logout(ctx context.Context, refreshTokenString string) error {
	refreshToken, err := s.refreshTokenRepo.FindByToken(refreshTokenString)
	if err != nil {
		return nil // already gone
	}
	return s.refreshTokenRepo.Revoke(refreshToken.ID)
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
