package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// roleTokenTTL is how long a minted role cookie stays valid.
const roleTokenTTL = 24 * time.Hour

// Claims is the payload of the role cookie. The token is stateless: nothing
// is persisted server-side, verification is signature + expiry only.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateRoleToken mints a signed role token for the given role string.
func GenerateRoleToken(secret, role string) (string, error) {
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(roleTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and verifies a role token.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
