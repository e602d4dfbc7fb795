package idgen

import (
	"crypto/rand"
	"fmt"
)

const charset = "0123456789abcdefghijklmnopqrstuvwxyz"

// maxUnbiased is the largest multiple of len(charset) that fits in a byte;
// bytes at or above it are discarded so every character is equally likely.
const maxUnbiased = 252

// GenerateSecureID returns "<prefix>_<random>" where random is length
// lowercase alphanumeric characters drawn from crypto/rand.
func GenerateSecureID(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid id length %d", length)
	}

	encoded := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(encoded) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= maxUnbiased {
				continue
			}
			encoded = append(encoded, charset[int(b)%len(charset)])
			if len(encoded) == length {
				break
			}
		}
	}

	if prefix == "" {
		return string(encoded), nil
	}
	return fmt.Sprintf("%s_%s", prefix, string(encoded)), nil
}
