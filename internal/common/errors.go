// Package common defines shared constants and sentinel errors used across
// the security core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Credential errors. ErrInvalidCredentials is the single caller-visible
	// rejection for every authentication failure; the specific cause is only
	// ever logged server-side.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")

	// Token lifecycle errors.
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrAlgorithmMismatch = errors.New("token algorithm mismatch")
	ErrTokenWrongType    = errors.New("wrong token type")
	ErrTokenRevoked      = errors.New("token revoked")
	ErrTokenNotFound     = errors.New("token not found")
	ErrReservedClaim     = errors.New("reserved claim name")

	// Crypto errors.
	ErrDecryptionFailure    = errors.New("decryption failure")
	ErrKeyDerivationFailure = errors.New("key derivation failure")

	// Oversized password or plaintext.
	ErrResourceExhausted = errors.New("input exceeds maximum size")

	// Egress validation errors.
	ErrSSRFBlocked = errors.New("destination address blocked")
)
