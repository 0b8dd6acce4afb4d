package secretbox

import (
	"strings"
	"testing"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestRoundTrip(t *testing.T) {
	ct, err := EncryptWithKey(testKeyHex, "relay-password")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !strings.Contains(ct, "|") {
		t.Fatalf("unexpected format: %q", ct)
	}
	pt, err := DecryptWithKey(testKeyHex, ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if pt != "relay-password" {
		t.Fatalf("round trip lost the plaintext: %q", pt)
	}
}

func TestNoncesDiffer(t *testing.T) {
	a, _ := EncryptWithKey(testKeyHex, "same")
	b, _ := EncryptWithKey(testKeyHex, "same")
	if a == b {
		t.Fatalf("two encryptions must not share a nonce")
	}
}

func TestWrongKeyFails(t *testing.T) {
	ct, err := EncryptWithKey(testKeyHex, "secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	other := "1f1e1d1c1b1a19181716151413121110" + "0f0e0d0c0b0a09080706050403020100"
	if _, err := DecryptWithKey(other, ct); err == nil {
		t.Fatalf("decryption with the wrong key must fail")
	}
}

func TestTamperedCiphertextFails(t *testing.T) {
	ct, err := EncryptWithKey(testKeyHex, "secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	parts := strings.SplitN(ct, "|", 2)
	tampered := parts[0] + "|A" + parts[1][1:]
	if _, err := DecryptWithKey(testKeyHex, tampered); err == nil {
		t.Fatalf("tampered ciphertext must fail authentication")
	}
}

func TestParseKey_Formats(t *testing.T) {
	raw := strings.Repeat("k", 32)
	for _, k := range []string{testKeyHex, raw} {
		if _, err := ParseKey(k); err != nil {
			t.Fatalf("ParseKey(%q): %v", k, err)
		}
	}
	if _, err := ParseKey("short"); err == nil {
		t.Fatalf("short key must be rejected")
	}
}

func TestDecrypt_BadFormat(t *testing.T) {
	if _, err := DecryptWithKey(testKeyHex, "not-a-ciphertext"); err == nil {
		t.Fatalf("missing separator must be rejected")
	}
}
