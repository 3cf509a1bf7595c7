package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	userID := "user-123"

	tok, err := GenerateToken(userID, TokenTypeAccess, "jti-1", secret, time.Hour, nil)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	claims, err := ParseToken(tok, secret)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.Subject != userID {
		t.Fatalf("subject mismatch: got %q want %q", claims.Subject, userID)
	}
	if claims.ID != "jti-1" {
		t.Fatalf("jti mismatch: got %q", claims.ID)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Fatalf("type mismatch: got %q", claims.TokenType)
	}
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken("u1", TokenTypeAccess, "jti-exp", secret, -1*time.Second, nil)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseToken(tok, secret)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u2", TokenTypeAccess, "jti-2", []byte("right-secret"), time.Hour, nil)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrTokenMalformed) {
		t.Fatalf("expected common.ErrTokenMalformed for invalid signature, got %v", err)
	}
}

func TestParseToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrTokenMalformed) {
		t.Fatalf("expected common.ErrTokenMalformed, got %v", err)
	}
}

func TestParseToken_AlgorithmNone(t *testing.T) {
	t.Parallel()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "attacker",
		"jti": "jti-none",
		"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)),
		"typ": "access",
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing with none: %v", err)
	}

	_, err = ParseToken(signed, []byte("secret"))
	if !errors.Is(err, common.ErrAlgorithmMismatch) {
		t.Fatalf("expected common.ErrAlgorithmMismatch for alg=none, got %v", err)
	}
}

func TestParseToken_ForeignAlgorithm(t *testing.T) {
	t.Parallel()

	// HS512 is a perfectly good algorithm, just not the pinned one.
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "attacker",
		"jti": "jti-512",
		"exp": jwt.NewNumericDate(time.Now().Add(time.Hour)),
		"typ": "access",
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing with HS512: %v", err)
	}

	_, err = ParseToken(signed, []byte("secret"))
	if !errors.Is(err, common.ErrAlgorithmMismatch) {
		t.Fatalf("expected common.ErrAlgorithmMismatch for HS512, got %v", err)
	}
}

func TestGenerateToken_ReservedClaimRejected(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"sub", "exp", "iat", "jti", "typ"} {
		_, err := GenerateToken("u1", TokenTypeAccess, "jti-x", []byte("secret"), time.Hour,
			map[string]string{name: "injected"})
		if !errors.Is(err, common.ErrReservedClaim) {
			t.Fatalf("expected common.ErrReservedClaim for %q, got %v", name, err)
		}
	}
}

func TestGenerateToken_ExtraClaimAccepted(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken("u1", TokenTypeAccess, "jti-extra", secret, time.Hour,
		map[string]string{"tenant": "acme"})
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	if _, err := ParseToken(tok, secret); err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
}
