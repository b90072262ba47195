package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token has expired")
	ErrMissingSigningKey = errors.New("token signing key is empty")
)

// Claims are the access token claims issued by the auth service.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService validates HS256 access tokens. It can also mint them for the
// issue-token command.
type TokenService struct {
	secretKey []byte
	accessTTL time.Duration
}

func NewTokenService(secretKey string, accessTTL time.Duration) (*TokenService, error) {
	if secretKey == "" {
		return nil, ErrMissingSigningKey
	}
	return &TokenService{
		secretKey: []byte(secretKey),
		accessTTL: accessTTL,
	}, nil
}

func (s *TokenService) GenerateAccessToken(userID, username, email string) (string, time.Time, error) {
	if len(s.secretKey) == 0 {
		return "", time.Time{}, ErrMissingSigningKey
	}
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)

	claims := Claims{
		UserID:   userID,
		Username: username,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ValidateAccessToken never accepts a token when no signing key is set.
func (s *TokenService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if len(s.secretKey) == 0 {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
