// Package cryptox implements the cryptographic primitives of the security
// core: peppered argon2id password hashing and versioned AES-GCM field
// encryption with HKDF-derived keys.
package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/authcore/internal/common"
	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is returned by Verify when the stored hash string cannot
// be parsed. Callers must treat it as a failed verification, never as a
// reason to bypass the authentication decision.
var ErrMalformedHash = errors.New("malformed password hash")

// Argon2id parameters. They are embedded in every produced hash string, so
// they can be raised later without invalidating existing hashes: old hashes
// keep verifying with their recorded parameters and NeedsRehash reports them
// as stale.
const (
	argonMemory  uint32 = 128 * 1024 // KiB
	argonTime    uint32 = 3
	argonThreads uint8  = 8
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16
)

// MaxPasswordLength bounds the accepted password size in bytes. Hashing cost
// grows with input size; without a cap an attacker can feed megabyte
// "passwords" and burn CPU and memory for free.
const MaxPasswordLength = 128

// dummyPassword feeds the precomputed reference hash used by DummyVerify.
const dummyPassword = "authcore-dummy-password"

// Hasher hashes and verifies passwords. Every password is first mixed with
// a deployment-wide pepper through HMAC-SHA256 and the result is fed to
// argon2id. The HMAC step runs in time independent of password content, so
// the pepper mix leaks nothing through timing.
//
// Hasher is stateless after construction and safe for concurrent use.
type Hasher struct {
	pepper    []byte
	dummyHash string
}

// NewHasher builds a Hasher around the given pepper and precomputes the
// reference hash used for unknown-user verification.
func NewHasher(pepper []byte) (*Hasher, error) {
	if len(pepper) == 0 {
		return nil, errors.New("empty pepper")
	}
	h := &Hasher{pepper: pepper}

	dummy, err := h.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("precomputing reference hash: %w", err)
	}
	h.dummyHash = dummy

	return h, nil
}

// mix applies the pepper: HMAC-SHA256(key=pepper, message=password),
// base64-encoded so the argon2 input is printable regardless of password
// encoding.
func (h *Hasher) mix(password string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	sum := mac.Sum(nil)
	out := make([]byte, base64.RawStdEncoding.EncodedLen(len(sum)))
	base64.RawStdEncoding.Encode(out, sum)
	return out
}

// Hash returns a self-describing argon2id hash string in PHC format:
//
//	$argon2id$v=19$m=131072,t=3,p=8$<salt>$<key>
//
// A fresh 16-byte salt is generated per call. Passwords longer than
// MaxPasswordLength are rejected with common.ErrResourceExhausted.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", common.ErrResourceExhausted
	}

	salt := common.GenerateRandByteArray(argonSaltLen)
	key := argon2.IDKey(h.mix(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify reports whether password matches the stored hash string. A wrong
// password is a normal (false, nil) result. A hash string that cannot be
// parsed yields (false, ErrMalformedHash); oversized input yields
// (false, common.ErrResourceExhausted).
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	if len(password) > MaxPasswordLength {
		return false, common.ErrResourceExhausted
	}

	params, salt, key, err := parseHash(encoded)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey(h.mix(password), salt, params.time, params.memory, params.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(candidate, key) == 1, nil
}

// DummyVerify runs a full verification against the precomputed reference
// hash and discards the result. The authentication flow calls it whenever
// there is no real hash to check (unknown username, locked account) so the
// response latency distribution stays indistinguishable from a live
// verification with a wrong password.
func (h *Hasher) DummyVerify() {
	_, _ = h.Verify(dummyPassword+"*", h.dummyHash)
}

// NeedsRehash reports whether the stored hash was produced with parameters
// weaker than the current ones and should be recomputed on the next
// successful login. Malformed hashes report true.
func (h *Hasher) NeedsRehash(encoded string) bool {
	params, _, key, err := parseHash(encoded)
	if err != nil {
		return true
	}
	return params.memory < argonMemory ||
		params.time < argonTime ||
		params.threads < argonThreads ||
		uint32(len(key)) < argonKeyLen
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func parseHash(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrMalformedHash
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrMalformedHash
	}

	return p, salt, key, nil
}
