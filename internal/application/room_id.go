package application

import (
	"crypto/sha256"
	"math/big"
	"strings"
)

// RoomUIDLength is the number of base-36 characters in a room identifier.
const RoomUIDLength = 4

// GenerateRoomUID derives a room identifier from seed: the SHA-256 digest of
// the seed written in upper-case base 36, truncated to RoomUIDLength.
func GenerateRoomUID(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	encoded := strings.ToUpper(new(big.Int).SetBytes(sum[:]).Text(36))
	if len(encoded) < RoomUIDLength {
		encoded = strings.Repeat("0", RoomUIDLength-len(encoded)) + encoded
	}
	return encoded[:RoomUIDLength]
}
