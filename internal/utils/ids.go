package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// GenerateID creates a prefixed entity identifier, e.g. "CTR-1F2A9C3B".
// The prefix identifies the entity kind (RISK, CTR, POS, INS, FLG, EVT).
func GenerateID(prefix string) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + id[:12]
}

// GenerateNFTID creates a 40-character hex identifier with an 0x prefix.
// Display-only opaque ID - it has no cryptographic significance and is
// not a real on-chain token.
func GenerateNFTID() string {
	buf := make([]byte, 20)
	// rand.Read on crypto/rand never fails on supported platforms
	_, _ = rand.Read(buf)
	return "0x" + hex.EncodeToString(buf)
}
