package models

import "github.com/golang-jwt/jwt/v5"

// AdminClaims are the claims expected on tokens that may create recommendations.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
