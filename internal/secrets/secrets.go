// Package secrets loads the root secrets of the security core (password
// pepper, token-signing key, field-encryption master secret) from an
// environment, file, or S3 source. Loading happens once at
// process start; missing or undersized secrets must prevent the process
// from starting at all.
package secrets

import (
	"encoding/hex"
	"fmt"
	"os"
)

// Minimum secret sizes in bytes. HMAC-SHA256 keys shorter than the block
// size lose strength; the signing key doubles the floor because it protects
// every issued session.
const (
	MinPepperLength         = 32
	MinFieldMasterKeyLength = 32
	MinSigningKeyLength     = 64
)

// Environment variable names for the env source. Values are hex-encoded
// (authctl gen-secrets emits this format).
const (
	EnvPepper         = "AUTHCORE_PEPPER"
	EnvSigningKey     = "AUTHCORE_SIGNING_KEY"
	EnvFieldMasterKey = "AUTHCORE_FIELD_MASTER_KEY"
)

// Secrets holds the decoded root secrets. Never log or serialize this
// struct.
type Secrets struct {
	Pepper         []byte
	SigningKey     []byte
	FieldMasterKey []byte
}

// Validate enforces presence and minimum sizes. A failure here is fatal to
// startup by design.
func (s *Secrets) Validate() error {
	if len(s.Pepper) < MinPepperLength {
		return fmt.Errorf("pepper must be at least %d bytes, got %d", MinPepperLength, len(s.Pepper))
	}
	if len(s.SigningKey) < MinSigningKeyLength {
		return fmt.Errorf("signing key must be at least %d bytes, got %d", MinSigningKeyLength, len(s.SigningKey))
	}
	if len(s.FieldMasterKey) < MinFieldMasterKeyLength {
		return fmt.Errorf("field master key must be at least %d bytes, got %d", MinFieldMasterKeyLength, len(s.FieldMasterKey))
	}
	return nil
}

// FromEnv loads and validates the secrets from environment variables.
func FromEnv() (*Secrets, error) {
	s := &Secrets{}

	for _, v := range []struct {
		name string
		dst  *[]byte
	}{
		{EnvPepper, &s.Pepper},
		{EnvSigningKey, &s.SigningKey},
		{EnvFieldMasterKey, &s.FieldMasterKey},
	} {
		raw := os.Getenv(v.name)
		if raw == "" {
			return nil, fmt.Errorf("environment variable %s is not set", v.name)
		}
		decoded, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", v.name, err)
		}
		*v.dst = decoded
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
