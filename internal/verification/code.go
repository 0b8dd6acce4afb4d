package verification

import (
	"crypto/rand"
	"fmt"
)

// codeLength is the number of digits in a verification code.
const codeLength = 6

// GenerateCode returns a 6-digit numeric code from crypto/rand.
// Rejection sampling keeps the digit distribution uniform.
func GenerateCode() (string, error) {
	out := make([]byte, codeLength)
	buf := make([]byte, 1)
	for i := 0; i < codeLength; {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("verification: random: %w", err)
		}
		// 250 is the largest multiple of 10 that fits in a byte.
		if buf[0] >= 250 {
			continue
		}
		out[i] = '0' + buf[0]%10
		i++
	}
	return string(out), nil
}
