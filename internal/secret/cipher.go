package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	nonceSize = 12
	tagSize   = 16
)

var (
	// ErrDisabled is returned when no secret was configured
	ErrDisabled = errors.New("encryption disabled")

	// ErrMalformed is returned for envelopes that cannot be split
	ErrMalformed = errors.New("malformed envelope")
)

// Cipher seals setting values with AES-256-GCM.
// The zero value and a nil *Cipher are valid and disabled.
type Cipher struct {
	aead cipher.AEAD
}

// New derives the key from secret with SHA-256. An empty secret
// yields a disabled cipher.
func New(secret string) (*Cipher, error) {
	if secret == "" {
		return &Cipher{}, nil
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{aead: gcm}, nil
}

// Enabled reports whether a key is available
func (c *Cipher) Enabled() bool {
	return c != nil && c.aead != nil
}

// Encrypt returns base64(nonce || tag || ciphertext)
func (c *Cipher) Encrypt(plain string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends the tag after the ciphertext
	sealed := c.aead.Seal(nil, nonce, []byte(plain), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	envelope := make([]byte, 0, len(nonce)+len(sealed))
	envelope = append(envelope, nonce...)
	envelope = append(envelope, tag...)
	envelope = append(envelope, ct...)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt opens an envelope produced by Encrypt
func (c *Cipher) Decrypt(envelope string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	data, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(data) < nonceSize+tagSize {
		return "", fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}

	nonce := data[:nonceSize]
	tag := data[nonceSize : nonceSize+tagSize]
	ct := data[nonceSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plain), nil
}

// Reveal decrypts a stored value, returning it unchanged when it
// cannot be decrypted (no key, rotated key, plaintext, corrupt data).
func (c *Cipher) Reveal(stored string) string {
	plain, err := c.Decrypt(stored)
	if err != nil {
		return stored
	}
	return plain
}
