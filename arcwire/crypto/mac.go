package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
)

// MACSize is the HMAC-SHA256 output size.
const MACSize = sha256.Size

// MAC computes HMAC-SHA256 over the concatenation of parts.
func MAC(key []byte, parts ...[]byte) [MACSize]byte {
	h := hmac.New(sha256.New, key)
	for _, p := range parts {
		h.Write(p)
	}
	var out [MACSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyMAC recomputes the HMAC over parts and compares it against mac
// in constant time.
func VerifyMAC(key []byte, mac []byte, parts ...[]byte) bool {
	expected := MAC(key, parts...)
	return hmac.Equal(expected[:], mac)
}
