package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrec/pkg/models"
)

const (
	RoleAdmin   = "admin"
	tokenIssuer = "reelrec"
)

var ErrForbidden = errors.New("token does not grant admin access")

// AuthService validates the HS256 admin tokens that guard recommendation
// creation. With an empty secret it is disabled.
type AuthService struct {
	logger    *logrus.Logger
	jwtSecret []byte
}

func NewAuthService(secret string, logger *logrus.Logger) *AuthService {
	return &AuthService{
		logger:    logger,
		jwtSecret: []byte(secret),
	}
}

func (s *AuthService) Enabled() bool {
	return len(s.jwtSecret) > 0
}

// GenerateToken issues a token for subject with the given role.
func (s *AuthService) GenerateToken(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateAdminToken parses tokenString and requires the admin role.
func (s *AuthService) ValidateAdminToken(tokenString string) (*models.AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*models.AdminClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Role != RoleAdmin {
		return nil, ErrForbidden
	}

	return claims, nil
}
