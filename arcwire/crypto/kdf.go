package crypto

import (
	"bytes"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Domain-separation labels. These are wire-compatibility constants:
// both peers must hash with identical labels to derive matching keys.
const (
	labelSharedSecret = "secure_channel_v1"
	labelEncryption   = "encryption"
	labelAuth         = "authentication"
	labelBootstrap    = "bootstrap_v1"
)

// DeriveKey derives a key of the specified length using HKDF-SHA256.
// salt can be nil (uses zero salt), info provides context binding.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
}

// SessionKeys derives the per-session key material:
//
//	shared  = SHA-256(label || ephDH || idDH || initiatorID || responderID)
//	encKey  = SHA-256("encryption" || shared)
//	authKey = SHA-256("authentication" || shared)
//
// The ephemeral ECDH output binds forward secrecy, the identity ECDH
// output binds peer authenticity, and the fixed initiator/responder
// ordering of the identity public keys makes both sides derive the
// same keys. Distinct labels prevent cross-purpose key reuse.
func SessionKeys(ephShared, idShared, initiatorID, responderID []byte) (shared, encKey, authKey []byte) {
	h := sha256.New()
	h.Write([]byte(labelSharedSecret))
	h.Write(ephShared)
	h.Write(idShared)
	h.Write(initiatorID)
	h.Write(responderID)
	shared = h.Sum(nil)

	he := sha256.New()
	he.Write([]byte(labelEncryption))
	he.Write(shared)
	encKey = he.Sum(nil)

	ha := sha256.New()
	ha.Write([]byte(labelAuth))
	ha.Write(shared)
	authKey = ha.Sum(nil)
	return shared, encKey, authKey
}

// BootstrapKeys derives the pre-handshake encryption and auth keys from
// the identity-only ECDH output. The two identity public keys are fed
// into the HKDF context in canonical byte order, so neither side needs
// to know yet who will initiate.
func BootstrapKeys(idShared, pubA, pubB []byte) (encKey, authKey []byte, err error) {
	lo, hi := pubA, pubB
	if bytes.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	info := make([]byte, 0, len(labelBootstrap)+len(lo)+len(hi))
	info = append(info, labelBootstrap...)
	info = append(info, lo...)
	info = append(info, hi...)

	material, err := DeriveKey(idShared, nil, info, 64)
	if err != nil {
		return nil, nil, err
	}
	return material[:32], material[32:64], nil
}
