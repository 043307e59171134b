package middlewares

import (
	"ticketbroker/src/types"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// GenerateAdminToken signs an admin token for username. Tokens are handed
// out by operators, there is no login endpoint.
func GenerateAdminToken(secret []byte, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &types.Claims{
		Username: username,
		Role:     ROLE_ADMIN,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
