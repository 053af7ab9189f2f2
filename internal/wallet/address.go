package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// DeriveAddress returns a fresh pseudo-address for username: "0x" followed by
// the last 20 bytes of Keccak-256(username || 16 random bytes), hex encoded.
// The address is not tied to any key pair.
func DeriveAddress(username string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read address salt: %w", err)
	}
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(username))
	h.Write(salt)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:]), nil
}
