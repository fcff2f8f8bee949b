package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest holds the fields for creating an account.
type RegisterRequest struct {
	Name     string   `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
	Role     UserRole `json:"role" validate:"required,oneof=teacher student"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenPair carries the issued session tokens. Tokens travel in cookies, not the body.
type TokenPair struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// LoginResponse returns the sanitized user and the token pair.
type LoginResponse struct {
	User   *User     `json:"user"`
	Tokens TokenPair `json:"-"`
}

// JWTClaims represents the JWT payload for access and refresh tokens.
type JWTClaims struct {
	UserID string   `json:"_id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
