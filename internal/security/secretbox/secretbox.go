// Package secretbox encrypts relay credentials at rest in the config file.
// Format: base64(nonce)|base64(ciphertext), NaCl secretbox under a 32-byte
// master key supplied as base64, hex or raw.
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keyLen   = 32
	nonceLen = 24
	sep      = "|"
)

// ParseKey decodes a master key given as base64 (std or raw), hex, or a raw
// 32-byte string.
func ParseKey(key string) (*[keyLen]byte, error) {
	key = strings.TrimSpace(key)
	var kb []byte

	if b, err := base64.StdEncoding.DecodeString(key); err == nil && len(b) == keyLen {
		kb = b
	} else if b, err := base64.RawStdEncoding.DecodeString(key); err == nil && len(b) == keyLen {
		kb = b
	} else if len(key) == 2*keyLen {
		if h, err := hex.DecodeString(key); err == nil {
			kb = h
		}
	}
	if kb == nil {
		kb = []byte(key)
	}
	if len(kb) != keyLen {
		return nil, fmt.Errorf("master key must decode to %d bytes, got %d", keyLen, len(kb))
	}

	var out [keyLen]byte
	copy(out[:], kb)
	return &out, nil
}

// EncryptWithKey seals plainText and returns base64(nonce)|base64(ciphertext).
func EncryptWithKey(key, plainText string) (string, error) {
	k, err := ParseKey(key)
	if err != nil {
		return "", err
	}

	var nonce [nonceLen]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	ct := secretbox.Seal(nil, []byte(plainText), &nonce, k)
	return base64.StdEncoding.EncodeToString(nonce[:]) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptWithKey opens a value produced by EncryptWithKey.
func DecryptWithKey(key, cipherText string) (string, error) {
	k, err := ParseKey(key)
	if err != nil {
		return "", err
	}

	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return "", errors.New("invalid format: want base64(nonce)|base64(ciphertext)")
	}
	nb, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	if len(nb) != nonceLen {
		return "", fmt.Errorf("nonce must be %d bytes, got %d", nonceLen, len(nb))
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	var nonce [nonceLen]byte
	copy(nonce[:], nb)

	pt, ok := secretbox.Open(nil, ct, &nonce, k)
	if !ok {
		return "", errors.New("decrypt failed: wrong key or tampered value")
	}
	return string(pt), nil
}
