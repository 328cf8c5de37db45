package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Algorithm identifies the authenticated encryption scheme in use.
const Algorithm = "aes-256-gcm"

var (
	// ErrDecryptFailed is returned when the authentication tag does not
	// verify or the envelope is malformed. Decryption fails closed:
	// corrupted plaintext is never returned.
	ErrDecryptFailed = errors.New("decryption failed")

	// ErrInvalidKey is returned for keys of the wrong length.
	ErrInvalidKey = errors.New("invalid key length")
)

// Envelope is the stored form of an encrypted payload. All fields are
// hex encoded.
type Envelope struct {
	CipherText string
	IV         string
	AuthTag    string
}

// GenerateKey returns a fresh cryptographically random AES-256 key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// KeyToHex encodes a key for storage.
func KeyToHex(key []byte) string {
	return hex.EncodeToString(key)
}

// KeyFromHex decodes a stored key.
func KeyFromHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// Encrypt seals plaintext with key using AES-256-GCM. A fresh random
// nonce is generated per call and is never reused with the same key.
func Encrypt(plaintext string, key []byte) (Envelope, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return Envelope{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Envelope{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends the auth tag to the ciphertext; store them apart.
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	tagAt := len(sealed) - gcm.Overhead()

	return Envelope{
		CipherText: hex.EncodeToString(sealed[:tagAt]),
		IV:         hex.EncodeToString(nonce),
		AuthTag:    hex.EncodeToString(sealed[tagAt:]),
	}, nil
}

// Decrypt opens an envelope with key. Any tampering with the ciphertext,
// nonce or tag yields ErrDecryptFailed.
func Decrypt(env Envelope, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	cipherText, err := hex.DecodeString(env.CipherText)
	if err != nil {
		return "", ErrDecryptFailed
	}
	nonce, err := hex.DecodeString(env.IV)
	if err != nil {
		return "", ErrDecryptFailed
	}
	tag, err := hex.DecodeString(env.AuthTag)
	if err != nil {
		return "", ErrDecryptFailed
	}
	if len(nonce) != gcm.NonceSize() || len(tag) != gcm.Overhead() {
		return "", ErrDecryptFailed
	}

	plaintext, err := gcm.Open(nil, nonce, append(cipherText, tag...), nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return gcm, nil
}
