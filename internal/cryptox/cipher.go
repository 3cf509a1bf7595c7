package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/authcore/internal/common"
	"golang.org/x/crypto/hkdf"
)

// MaxFieldSize bounds the plaintext accepted by Encrypt. Field values are
// API keys and similar short secrets; anything bigger is a caller bug or an
// exhaustion attempt.
const MaxFieldSize = 64 * 1024

// hkdfSalt is the fixed application salt for field-key derivation. It is not
// secret; it only domain-separates this derivation from any other use of the
// same master secret.
var hkdfSalt = []byte("authcore/field-encryption/hkdf-salt/v1")

const fieldNonceSize = 12

// FieldCipher encrypts individual sensitive values before they cross the
// storage boundary. Keys are derived from a single master secret via
// HKDF-SHA256 with a per-version context label, and each ciphertext carries
// its key-version tag so old and new ciphertexts coexist during rotation.
//
// Ciphertext layout: version(1) || nonce(12) || AES-256-GCM sealed data.
//
// FieldCipher holds no per-call state and is safe for concurrent use.
type FieldCipher struct {
	keys    map[uint8][]byte
	current uint8
}

// NewFieldCipher derives AEAD keys for versions 1..currentVersion from the
// master secret. Encryption always uses currentVersion; decryption accepts
// any derived version. Rotating a key is bumping currentVersion: new writes
// pick up the new derivation while old ciphertexts keep decrypting.
func NewFieldCipher(master []byte, currentVersion uint8) (*FieldCipher, error) {
	if len(master) == 0 {
		return nil, common.ErrKeyDerivationFailure
	}
	if currentVersion == 0 {
		return nil, fmt.Errorf("%w: version must start at 1", common.ErrKeyDerivationFailure)
	}

	keys := make(map[uint8][]byte, currentVersion)
	for v := uint8(1); v <= currentVersion; v++ {
		key, err := deriveFieldKey(master, v)
		if err != nil {
			return nil, err
		}
		keys[v] = key
	}

	return &FieldCipher{keys: keys, current: currentVersion}, nil
}

func deriveFieldKey(master []byte, version uint8) ([]byte, error) {
	info := fmt.Sprintf("authcore/field-encryption/key/v%d", version)
	r := hkdf.New(sha256.New, master, hkdfSalt, []byte(info))

	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyDerivationFailure, err)
	}
	return key, nil
}

// Encrypt seals plaintext under the current key version with a fresh random
// nonce.
func (c *FieldCipher) Encrypt(plaintext []byte) ([]byte, error) {
	if len(plaintext) > MaxFieldSize {
		return nil, common.ErrResourceExhausted
	}

	aead, err := c.aead(c.current)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(fieldNonceSize)

	out := make([]byte, 0, 1+fieldNonceSize+len(plaintext)+aead.Overhead())
	out = append(out, c.current)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)

	return out, nil
}

// Decrypt opens a ciphertext produced by Encrypt. Any integrity failure,
// whether truncation, an unknown key version, or a flipped bit in the blob,
// returns common.ErrDecryptionFailure and no partial plaintext.
func (c *FieldCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 1+fieldNonceSize {
		return nil, common.ErrDecryptionFailure
	}

	version := ciphertext[0]
	if _, ok := c.keys[version]; !ok {
		return nil, fmt.Errorf("%w: unknown key version %d", common.ErrDecryptionFailure, version)
	}

	aead, err := c.aead(version)
	if err != nil {
		return nil, err
	}

	nonce := ciphertext[1 : 1+fieldNonceSize]
	sealed := ciphertext[1+fieldNonceSize:]

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, common.ErrDecryptionFailure
	}
	return plaintext, nil
}

func (c *FieldCipher) aead(version uint8) (cipher.AEAD, error) {
	key, ok := c.keys[version]
	if !ok {
		return nil, errors.New("no key for version")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
