package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// VoterHashIterations is the work factor applied when deriving a voter hash.
const VoterHashIterations = 5000

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for i := 0; i < iterations; i++ {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// VoterHash derives the one-way voter identity hash stored on casting tokens
// and participation records. The raw identity never reaches the store. Token
// minting lives in the issuing service, not this backend, so VoterHash (and
// IteratedSHA256 under it) defines the derivation that service must use for
// its voter_hash values to line up with the participation-record constraint.
func VoterHash(identity, salt string) string {
	return IteratedSHA256(salt+identity, VoterHashIterations)
}

// TokenKeySuffix returns a short hash prefix of a casting token, safe to use
// in cache keys and log lines without exposing the token itself.
func TokenKeySuffix(token string) string {
	return SHA256Hex(token)[:12]
}
