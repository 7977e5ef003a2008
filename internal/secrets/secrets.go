// Package secrets seals and unseals integration credentials. Values are
// encrypted with NaCl secretbox under a single service key and stored as
// base64(nonce || ciphertext).
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/causeway-ops/causeway/internal/models"
)

const nonceSize = 24

// ErrDecryptFailed is returned when a sealed value cannot be opened, either
// because it is corrupt or was sealed under a different key.
var ErrDecryptFailed = errors.New("failed to decrypt sealed value")

// Manager seals and unseals credential values.
type Manager struct {
	key [32]byte
}

// NewManager creates a Manager from a hex-encoded 32-byte key.
func NewManager(hexKey string) (*Manager, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode secrets key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("secrets key must be 32 bytes, got %d", len(raw))
	}
	m := &Manager{}
	copy(m.key[:], raw)
	return m, nil
}

// Seal encrypts a plaintext value for storage.
func (m *Manager) Seal(plaintext string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &m.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value.
func (m *Manager) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	if len(raw) < nonceSize {
		return "", ErrDecryptFailed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &m.key)
	if !ok {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

// PopulateCredentials returns copies of the integrations with their sealed
// credentials decrypted into the Credentials map. The input records are not
// mutated.
func (m *Manager) PopulateCredentials(integrations []models.Integration) ([]models.Integration, error) {
	out := make([]models.Integration, len(integrations))
	for i, integ := range integrations {
		populated := integ
		populated.Credentials = make(map[string]string, len(integ.SealedCredentials))
		for name, sealed := range integ.SealedCredentials {
			value, err := m.Open(sealed)
			if err != nil {
				return nil, fmt.Errorf("populate %s credential %q: %w", integ.Vendor, name, err)
			}
			populated.Credentials[name] = value
		}
		out[i] = populated
	}
	return out, nil
}
