package secrets

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// bundle is the JSON shape of a secrets file or S3 object. Values are
// hex-encoded.
type bundle struct {
	Pepper         string `json:"pepper"`
	SigningKey     string `json:"signing_key"`
	FieldMasterKey string `json:"field_master_key"`
}

func (b *bundle) decode() (*Secrets, error) {
	s := &Secrets{}

	for _, v := range []struct {
		name string
		raw  string
		dst  *[]byte
	}{
		{"pepper", b.Pepper, &s.Pepper},
		{"signing_key", b.SigningKey, &s.SigningKey},
		{"field_master_key", b.FieldMasterKey, &s.FieldMasterKey},
	} {
		if v.raw == "" {
			return nil, fmt.Errorf("secret %q is missing", v.name)
		}
		decoded, err := hex.DecodeString(v.raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %q: %w", v.name, err)
		}
		*v.dst = decoded
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromFile loads and validates a JSON secrets bundle from disk.
func FromFile(path string) (*Secrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file: %w", err)
	}
	return parseBundle(data)
}

func parseBundle(data []byte) (*Secrets, error) {
	b := &bundle{}
	if err := json.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("parsing secrets bundle: %w", err)
	}
	return b.decode()
}
