package crypto

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	plaintexts := []string{
		"hello",
		"",
		"こんにちは、世界",
		strings.Repeat("a", 4096),
	}

	for _, p := range plaintexts {
		env, err := Encrypt(p, key)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", p, err)
		}
		got, err := Decrypt(env, key)
		if err != nil {
			t.Fatalf("Decrypt(%q): %v", p, err)
		}
		if got != p {
			t.Fatalf("round trip mismatch: got %q want %q", got, p)
		}
	}
}

func TestDecryptRejectsTamperedCipherText(t *testing.T) {
	key, _ := GenerateKey()
	env, err := Encrypt("hello", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	raw, _ := hex.DecodeString(env.CipherText)
	raw[0] ^= 0x01
	env.CipherText = hex.EncodeToString(raw)

	if _, err := Decrypt(env, key); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestDecryptRejectsTamperedAuthTag(t *testing.T) {
	key, _ := GenerateKey()
	env, err := Encrypt("hello", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	raw, _ := hex.DecodeString(env.AuthTag)
	raw[len(raw)-1] ^= 0x80
	env.AuthTag = hex.EncodeToString(raw)

	if _, err := Decrypt(env, key); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	key, _ := GenerateKey()
	other, _ := GenerateKey()

	env, err := Encrypt("hello", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := Decrypt(env, other); !errors.Is(err, ErrDecryptFailed) {
		t.Fatalf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestEncryptGeneratesFreshNonce(t *testing.T) {
	key, _ := GenerateKey()

	a, err := Encrypt("same plaintext", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := Encrypt("same plaintext", key)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if a.IV == b.IV {
		t.Fatal("nonce reused across calls")
	}
	if a.CipherText == b.CipherText {
		t.Fatal("identical ciphertext for identical plaintext; nonce not applied")
	}
}

func TestKeyHexRoundTrip(t *testing.T) {
	key, _ := GenerateKey()

	decoded, err := KeyFromHex(KeyToHex(key))
	if err != nil {
		t.Fatalf("KeyFromHex: %v", err)
	}
	if string(decoded) != string(key) {
		t.Fatal("key hex round trip mismatch")
	}

	if _, err := KeyFromHex("abcd"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for short key, got %v", err)
	}
}
