package recorder

import (
	"crypto/sha256"
	"encoding/hex"
)

// MaxHashSize is the maximum number of bytes hashed from a serialized context.
const MaxHashSize = 1024 * 1024

// HashContent returns the hex SHA-256 of content, or "" if content is empty.
// Content beyond MaxHashSize is ignored.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	if len(content) > MaxHashSize {
		content = content[:MaxHashSize]
	}
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
