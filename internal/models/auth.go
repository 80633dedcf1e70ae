package models

import "github.com/golang-jwt/jwt/v5"

// Role represents the operator roles accepted by the admin data API.
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleSupport    Role = "SUPPORT"
)

// JWTClaims represents the access token payload issued by the identity service.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}
