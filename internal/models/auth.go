package models

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are the JWT claims attached by the identity service. This
// service validates tokens but never issues them.
type AccessClaims struct {
	UserID    string   `json:"uid"`
	Role      string   `json:"role"`
	BranchIDs []string `json:"branch_ids,omitempty"`
	jwt.RegisteredClaims
}
