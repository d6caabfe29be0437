package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// Test key generated with: openssl rand -base64 32
const testKey = "dGVzdC1rZXktZm9yLXVuaXQtdGVzdHMtMzItYnl0ZXM="

func TestNewSecretCipher(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "32-byte base64 key", key: testKey},
		{name: "passphrase hashed to 32 bytes", key: "my-simple-passphrase"},
		{name: "short base64 hashed to 32 bytes", key: base64.StdEncoding.EncodeToString([]byte("sixteen-byte-key"))},
		{name: "long base64 hashed to 32 bytes", key: base64.StdEncoding.EncodeToString([]byte(strings.Repeat("x", 64)))},
		{name: "empty key", key: "", wantErr: ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cipher, err := NewSecretCipher(tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cipher == nil {
				t.Fatal("expected non-nil cipher")
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	cipher, err := NewSecretCipher(testKey)
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	for _, plaintext := range []string{
		"hunter2",
		"p@ss:word/with?specials#",
		strings.Repeat("long-credential-", 64),
		"контрасеньа", // non-ascii survives
	} {
		encrypted, err := cipher.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", plaintext, err)
		}
		if encrypted == plaintext {
			t.Errorf("ciphertext equals plaintext for %q", plaintext)
		}

		decrypted, err := cipher.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if decrypted != plaintext {
			t.Errorf("round trip mismatch: got %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEmptyStringPassesThrough(t *testing.T) {
	cipher, err := NewSecretCipher(testKey)
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	encrypted, err := cipher.Encrypt("")
	if err != nil || encrypted != "" {
		t.Errorf("Encrypt(\"\") = (%q, %v), want (\"\", nil)", encrypted, err)
	}

	decrypted, err := cipher.Decrypt("")
	if err != nil || decrypted != "" {
		t.Errorf("Decrypt(\"\") = (%q, %v), want (\"\", nil)", decrypted, err)
	}
}

func TestEncryptProducesFreshNonces(t *testing.T) {
	cipher, err := NewSecretCipher(testKey)
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	first, err := cipher.Encrypt("same-secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	second, err := cipher.Encrypt("same-secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if first == second {
		t.Error("two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestPassphraseConsistencyAcrossInstances(t *testing.T) {
	first, err := NewSecretCipher("shared-passphrase")
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}
	second, err := NewSecretCipher("shared-passphrase")
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	encrypted, err := first.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	decrypted, err := second.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt with second instance: %v", err)
	}
	if decrypted != "secret" {
		t.Errorf("got %q, want %q", decrypted, "secret")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	cipher, err := NewSecretCipher("first-key")
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}
	other, err := NewSecretCipher("second-key")
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	encrypted, err := cipher.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := other.Decrypt(encrypted); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("expected ErrDecryptFailed, got %v", err)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	cipher, err := NewSecretCipher(testKey)
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	for _, input := range []string{
		"not base64 at all!!!",
		base64.StdEncoding.EncodeToString([]byte("short")),
	} {
		if _, err := cipher.Decrypt(input); !errors.Is(err, ErrDecryptFailed) {
			t.Errorf("Decrypt(%q): expected ErrDecryptFailed, got %v", input, err)
		}
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	cipher, err := NewSecretCipher(testKey)
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	encrypted, err := cipher.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := cipher.Decrypt(tampered); !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("expected ErrDecryptFailed for tampered ciphertext, got %v", err)
	}
}

func TestEncryptFields(t *testing.T) {
	cipher, err := NewSecretCipher(testKey)
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	config := map[string]any{
		"host":     "db.example.com",
		"port":     5432,
		"user":     "app",
		"password": "hunter2",
	}

	sealed, err := cipher.EncryptFields(config, "password")
	if err != nil {
		t.Fatalf("EncryptFields: %v", err)
	}

	if sealed["password"] == "hunter2" {
		t.Error("password was not encrypted")
	}
	if sealed["host"] != "db.example.com" {
		t.Errorf("host changed: %v", sealed["host"])
	}
	if sealed["port"] != 5432 {
		t.Errorf("non-string field changed: %v", sealed["port"])
	}
	if config["password"] != "hunter2" {
		t.Error("input map was mutated")
	}

	opened, err := cipher.DecryptFields(sealed, "password")
	if err != nil {
		t.Fatalf("DecryptFields: %v", err)
	}
	if opened["password"] != "hunter2" {
		t.Errorf("round trip mismatch: %v", opened["password"])
	}
}

func TestEncryptFieldsSkipsAbsentAndNonString(t *testing.T) {
	cipher, err := NewSecretCipher(testKey)
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	config := map[string]any{"port": 5432}
	out, err := cipher.EncryptFields(config, "password", "port")
	if err != nil {
		t.Fatalf("EncryptFields: %v", err)
	}
	if out["port"] != 5432 {
		t.Errorf("port changed: %v", out["port"])
	}
	if _, present := out["password"]; present {
		t.Error("absent field was materialized")
	}
}

func TestDecryptFieldsWrongKey(t *testing.T) {
	cipher, err := NewSecretCipher("first-key")
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}
	other, err := NewSecretCipher("second-key")
	if err != nil {
		t.Fatalf("NewSecretCipher: %v", err)
	}

	sealed, err := cipher.EncryptFields(map[string]any{"password": "secret"}, "password")
	if err != nil {
		t.Fatalf("EncryptFields: %v", err)
	}

	_, err = other.DecryptFields(sealed, "password")
	if !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("expected ErrDecryptFailed, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "password") {
		t.Errorf("expected error to name the field, got %v", err)
	}
}
