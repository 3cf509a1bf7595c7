// Package auth implements signed bearer tokens: HS256-only JWT generation
// and parsing, reserved-claim protection, and the volatile access-token
// denylist.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes access tokens from refresh tokens. The type is a
// signed claim, so a refresh token can never be replayed where an access
// token is expected and vice versa.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims carries the standard registered claims plus the token type.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"typ"`
}

// reservedClaimNames are owned exclusively by the token service. Any
// caller-supplied extra claim with one of these names is rejected before
// signing, so injected claims can never override identity or lifetime.
var reservedClaimNames = map[string]struct{}{
	"sub": {},
	"exp": {},
	"iat": {},
	"jti": {},
	"typ": {},
}

// CheckExtraClaims rejects extras colliding with reserved claim names.
func CheckExtraClaims(extra map[string]string) error {
	for name := range extra {
		if _, reserved := reservedClaimNames[name]; reserved {
			return fmt.Errorf("%w: %q", common.ErrReservedClaim, name)
		}
	}
	return nil
}

// GenerateToken signs a token of the given type with HS256. The jti must be
// unique per token; extra claims are optional and must not collide with
// reserved names.
func GenerateToken(userID string, typ TokenType, jti string, secretKey []byte, validityDuration time.Duration, extra map[string]string) (string, error) {
	if err := CheckExtraClaims(extra); err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"jti": jti,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(validityDuration)),
		"typ": string(typ),
	}
	for name, value := range extra {
		claims[name] = value
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature and expiry and returns the claims. The
// signing algorithm is pinned to HS256: a token whose header negotiates any
// other algorithm (including "none") fails with ErrAlgorithmMismatch no
// matter what its payload says.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, common.ErrAlgorithmMismatch
		}
		return secretKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, common.ErrAlgorithmMismatch):
			return nil, common.ErrAlgorithmMismatch
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		default:
			return nil, fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
		}
	}

	if !token.Valid {
		return nil, common.ErrTokenMalformed
	}

	return claims, nil
}
