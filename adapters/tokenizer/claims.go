package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the holder's role.
type SessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}
