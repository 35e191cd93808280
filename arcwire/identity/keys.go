package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"
	"errors"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/curve25519"
)

var (
	ErrInvalidPublicKey  = errors.New("identity: invalid Ed25519 public key")
	ErrInvalidPrivateKey = errors.New("identity: invalid Ed25519 private key")
)

// KeyPair holds the long-term Ed25519 keypair identifying a node.
// The same key signs handshake proofs and, through the Edwards to
// Montgomery map, takes part in identity ECDH (see ECDHPrivate).
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

func NewKeyPair(publicKey, privateKey []byte) (KeyPair, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return KeyPair{}, ErrInvalidPublicKey
	}
	if len(privateKey) != ed25519.PrivateKeySize {
		return KeyPair{}, ErrInvalidPrivateKey
	}
	return KeyPair{PublicKey: ed25519.PublicKey(publicKey), PrivateKey: ed25519.PrivateKey(privateKey)}, nil
}

func (kp KeyPair) PeerID() PeerID {
	return PeerIDFromPublicKey(kp.PublicKey)
}

func (kp KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.PrivateKey, message)
}

func Verify(publicKey ed25519.PublicKey, message, signature []byte) bool {
	return ed25519.Verify(publicKey, message, signature)
}

// ECDHPrivate returns the Curve25519 scalar corresponding to the
// Ed25519 private key: SHA-512 of the seed, clamped per RFC 7748.
func (kp KeyPair) ECDHPrivate() ([32]byte, error) {
	var scalar [32]byte
	if len(kp.PrivateKey) != ed25519.PrivateKeySize {
		return scalar, ErrInvalidPrivateKey
	}
	h := sha512.Sum512(kp.PrivateKey.Seed())
	copy(scalar[:], h[:curve25519.ScalarSize])
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
	return scalar, nil
}

// PublicKeyToCurve25519 converts an Ed25519 public key to the unique
// corresponding Curve25519 public key via the birational map.
func PublicKeyToCurve25519(publicKey ed25519.PublicKey) ([32]byte, error) {
	var out [32]byte
	if len(publicKey) != ed25519.PublicKeySize {
		return out, ErrInvalidPublicKey
	}
	p, err := new(edwards25519.Point).SetBytes(publicKey)
	if err != nil {
		return out, ErrInvalidPublicKey
	}
	copy(out[:], p.BytesMontgomery())
	return out, nil
}
