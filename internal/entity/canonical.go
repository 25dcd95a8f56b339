package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CanonicalJSON marshals v to JSON with lexicographically sorted keys at
// every level and no insignificant whitespace. encoding/json already sorts
// map[string]interface{} keys and emits compact output for json.Marshal (as
// opposed to MarshalIndent), so canonicalization only requires that payloads
// be built from maps rather than structs with declaration-order fields.
func CanonicalJSON(v map[string]interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// sha256Hex returns the lowercase hex-encoded SHA-256 digest of data.
func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
