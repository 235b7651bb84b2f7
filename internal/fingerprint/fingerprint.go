// Package fingerprint derives a stable identity for uploaded content.
//
// Two byte-identical uploads by the same owner always produce the same
// fingerprint; the owner id is folded in so identical content uploaded by
// different owners never collides across accounts.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Compute returns a deterministic hex fingerprint for content owned by ownerID.
func Compute(content []byte, ownerID string) string {
	h := sha256.New()
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(content)))
	h.Write(size[:])
	h.Write(content)
	h.Write([]byte(ownerID))
	return hex.EncodeToString(h.Sum(nil))
}
