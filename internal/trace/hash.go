package trace

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeTraceHash computes the deterministic hash of a canonical trace
// encoding.
//
// Requirements:
//   - Must cover the canonical sorted order of events (not insertion order).
//   - Must be stable across architectures.
//
// This function assumes the input bytes are already a canonical encoding
// (e.g. from RunTrace.CanonicalJSON()).
func ComputeTraceHash(canonicalEncoding []byte) string {
	if len(canonicalEncoding) == 0 {
		return ""
	}
	sum := sha256.Sum256(canonicalEncoding)
	return hex.EncodeToString(sum[:])
}
