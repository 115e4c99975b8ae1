package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access-token payload issued by the session service.
// Token issuance lives outside this API; handlers only validate and read it.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
