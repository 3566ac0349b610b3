// Package crypto seals persisted blobs with AES-256-GCM.
//
// Each seal draws a random salt and derives its key from the passphrase with
// PBKDF2-SHA256. Sealed data is text: a short header followed by
// base64(salt || nonce || ciphertext), so it can be stored anywhere a JSON
// document can (files, gists, text columns).
package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 100000
	keySize    = 32 // AES-256
	saltSize   = 16
)

// header marks sealed data; anything without it is treated as plaintext
var header = []byte("campushub:aesgcm:v1:")

// ErrDecrypt is returned when sealed data cannot be opened with the configured key
var ErrDecrypt = errors.New("decrypting blob")

// Encryptor seals and opens blobs. A nil *Encryptor passes data through unchanged.
type Encryptor struct {
	passphrase []byte

	// last derived key, reused while the blob keeps the same salt
	mu       sync.Mutex
	lastSalt []byte
	lastKey  []byte
}

// NewEncryptor creates a new encryptor with the given passphrase.
// Returns nil for an empty passphrase.
func NewEncryptor(passphrase string) *Encryptor {
	if passphrase == "" {
		return nil
	}
	return &Encryptor{passphrase: []byte(passphrase)}
}

// key derives the AES key for salt
func (e *Encryptor) key(salt []byte) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastKey != nil && bytes.Equal(e.lastSalt, salt) {
		return e.lastKey
	}
	k := pbkdf2.Key(e.passphrase, salt, iterations, keySize, sha256.New)
	e.lastSalt = append([]byte(nil), salt...)
	e.lastKey = k
	return k
}

// IsSealed reports whether data carries the sealed-blob header
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, header)
}

// Seal encrypts plaintext. Empty input stays empty.
func (e *Encryptor) Seal(plaintext []byte) ([]byte, error) {
	if e == nil || len(plaintext) == 0 {
		return plaintext, nil
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("reading salt: %w", err)
	}

	gcm, err := newGCM(e.key(salt))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("reading nonce: %w", err)
	}

	raw := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+gcm.Overhead())
	raw = append(raw, salt...)
	raw = append(raw, nonce...)
	raw = gcm.Seal(raw, nonce, plaintext, nil)

	out := make([]byte, len(header)+base64.StdEncoding.EncodedLen(len(raw)))
	copy(out, header)
	base64.StdEncoding.Encode(out[len(header):], raw)
	return out, nil
}

// Open decrypts data produced by Seal. Data without the sealed header is
// returned as-is so blobs written before encryption was enabled stay readable.
func (e *Encryptor) Open(data []byte) ([]byte, error) {
	if e == nil || !IsSealed(data) {
		return data, nil
	}

	raw := make([]byte, base64.StdEncoding.DecodedLen(len(data)-len(header)))
	n, err := base64.StdEncoding.Decode(raw, data[len(header):])
	if err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", ErrDecrypt, err)
	}
	raw = raw[:n]

	if len(raw) < saltSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	salt, rest := raw[:saltSize], raw[saltSize:]

	gcm, err := newGCM(e.key(salt))
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(rest) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	nonce, cipherData := rest[:nonceSize], rest[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}
