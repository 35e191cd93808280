package wire

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
)

const (
	// EphemeralKeySize is the X25519 public key length.
	EphemeralKeySize = 32

	// ProofSize is the Ed25519 identity proof length.
	ProofSize = ed25519.SignatureSize

	// handshakePayloadSize is the fixed plaintext layout:
	// version(1) + ephemeral(32) + proof(64) + timestamp(8).
	handshakePayloadSize = 1 + EphemeralKeySize + ProofSize + 8
)

var ErrInvalidHandshake = errors.New("wire: malformed handshake payload")

// HandshakePayload is the plaintext of a Handshake or HandshakeResponse
// envelope, encrypted under the bootstrap keys. IdentityProof is an
// Ed25519 signature over SHA-256(EphemeralPub) with the sender's
// long-term identity key, binding the ephemeral to that identity.
type HandshakePayload struct {
	Version       uint8
	EphemeralPub  [EphemeralKeySize]byte
	IdentityProof [ProofSize]byte
	Timestamp     int64 // seconds since epoch
}

// Encode serializes the payload into its fixed layout.
func (p *HandshakePayload) Encode() []byte {
	out := make([]byte, handshakePayloadSize)
	out[0] = p.Version
	copy(out[1:33], p.EphemeralPub[:])
	copy(out[33:97], p.IdentityProof[:])
	binary.BigEndian.PutUint64(out[97:105], uint64(p.Timestamp))
	return out
}

// DecodeHandshakePayload parses a fixed-layout handshake payload.
func DecodeHandshakePayload(data []byte) (HandshakePayload, error) {
	if len(data) != handshakePayloadSize {
		return HandshakePayload{}, ErrInvalidHandshake
	}
	var p HandshakePayload
	p.Version = data[0]
	copy(p.EphemeralPub[:], data[1:33])
	copy(p.IdentityProof[:], data[33:97])
	p.Timestamp = int64(binary.BigEndian.Uint64(data[97:105]))
	return p, nil
}
