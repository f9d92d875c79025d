package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/listforge/trustgate/core"
	"github.com/listforge/trustgate/ports"
)

const AudienceSession = "session:access"

// HMACTokenizer implements the Tokenizer interface with an HS256 JWT over a
// process-wide server secret. Credentials are self-contained: signature,
// then expiry, is all that verification consults.
type HMACTokenizer struct {
	secret []byte
	ttl    time.Duration
}

// NewHMACTokenizer creates a new HMAC tokenizer
func NewHMACTokenizer(secret []byte, ttl time.Duration) ports.Tokenizer {
	return &HMACTokenizer{secret: secret, ttl: ttl}
}

// IssueSession signs a credential bound to the user's address and current role
func (t *HMACTokenizer) IssueSession(user core.User) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Address,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{AudienceSession},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Role: string(user.Role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// VerifySession recomputes the signature over the received token and only
// then checks expiry. Structural failures map to core.ErrTokenMalformed,
// expiry to core.ErrTokenExpired, everything else to core.ErrInvalidToken.
func (t *HMACTokenizer) VerifySession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithAudience(AudienceSession))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", core.ErrTokenMalformed, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, core.ErrTokenExpired
		default:
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
		}
	}

	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}

	session := &core.Session{
		TokenID:   claims.ID,
		Address:   claims.Subject,
		Role:      core.Role(claims.Role),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	return session, nil
}
