// Package cryptobox seals short strings with XChaCha20-Poly1305 so message
// bodies never sit in the local cache in clear text.
package cryptobox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const keyInfo = "bookdot message cache v1"

var ErrMalformed = errors.New("cryptobox: malformed ciphertext")

// Box encrypts and decrypts with one derived key.
type Box struct {
	key []byte
}

// New derives a 256-bit key from secret.
func New(secret string) (*Box, error) {
	if secret == "" {
		return nil, errors.New("cryptobox: empty secret")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("cryptobox: derive key: %w", err)
	}
	return &Box{key: key}, nil
}

// Seal encrypts plaintext bound to aad and returns base64(nonce || ciphertext).
func (b *Box) Seal(plaintext, aad string) (string, error) {
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := aead.Seal(nonce, nonce, []byte(plaintext), []byte(aad))
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. The same aad must be supplied.
func (b *Box) Open(sealed, aad string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrMalformed
	}
	aead, err := chacha20poly1305.NewX(b.key)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformed
	}
	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, []byte(aad))
	if err != nil {
		return "", fmt.Errorf("cryptobox: open: %w", err)
	}
	return string(plain), nil
}
