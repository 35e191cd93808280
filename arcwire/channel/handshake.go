package channel

import (
	"fmt"
	"time"

	"github.com/arcwire/arcwire/arcwire/crypto"
	"github.com/arcwire/arcwire/arcwire/identity"
	"github.com/arcwire/arcwire/arcwire/wire"
)

// InitiateHandshake builds the opening handshake envelope. Valid only
// in state New; the channel moves to HandshakeInitiated and takes the
// initiator role for key derivation.
func (c *SecureChannel) InitiateHandshake() (*wire.EncryptedMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNew {
		return nil, fmt.Errorf("%w: handshake initiation in state %s", ErrProtocolState, c.state)
	}

	env, err := c.sealBootstrapLocked(wire.MessageTypeHandshake, c.handshakePayloadLocked())
	if err != nil {
		return nil, err
	}
	c.initiator = true
	c.state = StateHandshakeInitiated
	c.lastMessage = time.Now()
	return env, nil
}

// ProcessHandshake consumes a Handshake (as responder, in New) or a
// HandshakeResponse (as initiator, in HandshakeInitiated). Checks run
// in strict order: MAC, decryption, version, freshness, ephemeral
// parse, identity proof, key derivation. As responder the signed
// response envelope is returned for transmission; as initiator the
// return is nil. Either way the channel ends Established with the
// ephemeral private key wiped.
func (c *SecureChannel) ProcessHandshake(msg *wire.EncryptedMessage) (*wire.EncryptedMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Type {
	case wire.MessageTypeHandshake:
		if c.state != StateNew {
			return nil, fmt.Errorf("%w: inbound handshake in state %s", ErrProtocolState, c.state)
		}
	case wire.MessageTypeHandshakeResponse:
		if c.state != StateHandshakeInitiated {
			return nil, fmt.Errorf("%w: handshake response in state %s", ErrProtocolState, c.state)
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a handshake message", ErrProtocolState, msg.Type)
	}

	// Constant-time MAC check before any decryption attempt.
	if !crypto.VerifyMAC(c.bootAuthKey, msg.MAC[:], macParts(msg)...) {
		return nil, ErrAuthentication
	}

	pt, err := crypto.Open(c.bootEncKey, msg.Nonce, msg.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	payload, err := wire.DecodeHandshakePayload(pt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyAgreement, err)
	}

	if payload.Version > wire.ProtocolVersion {
		return nil, fmt.Errorf("%w: peer version %d", ErrVersion, payload.Version)
	}
	if payload.Timestamp < time.Now().Add(-HandshakeTimeout).Unix() {
		return nil, fmt.Errorf("%w: handshake timestamp %d", ErrFreshness, payload.Timestamp)
	}
	if !identity.Verify(c.peerPub, ephemeralDigest(payload.EphemeralPub), payload.IdentityProof[:]) {
		return nil, ErrSignature
	}

	ephShared, err := crypto.ECDH(c.eph.PrivateKey, payload.EphemeralPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyAgreement, err)
	}
	defer crypto.Zeroize(ephShared)

	idShared, err := identityShared(c.identity, c.peerPub)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(idShared)

	// The responder's reply payload must capture the local ephemeral
	// public key before the pair is retired below.
	var responsePayload []byte
	if msg.Type == wire.MessageTypeHandshake {
		responsePayload = c.handshakePayloadLocked()
	}

	c.installKeysLocked(ephShared, idShared)
	c.eph.Wipe()
	c.eph = nil

	now := time.Now()
	c.state = StateEstablished
	c.lastMessage = now
	c.lastRotation = now

	if responsePayload == nil {
		return nil, nil
	}
	return c.sealBootstrapLocked(wire.MessageTypeHandshakeResponse, responsePayload)
}

// handshakePayloadLocked builds the signed plaintext payload carrying
// the current ephemeral public key.
func (c *SecureChannel) handshakePayloadLocked() []byte {
	p := wire.HandshakePayload{
		Version:      wire.ProtocolVersion,
		EphemeralPub: c.eph.PublicKey,
		Timestamp:    time.Now().Unix(),
	}
	copy(p.IdentityProof[:], c.identity.Sign(ephemeralDigest(c.eph.PublicKey)))
	return p.Encode()
}

// sealBootstrapLocked builds a handshake envelope under the bootstrap
// keys: random nonce, counter zero, MAC without the counter field.
func (c *SecureChannel) sealBootstrapLocked(t wire.MessageType, plaintext []byte) (*wire.EncryptedMessage, error) {
	nonce, err := crypto.RandomNonce()
	if err != nil {
		return nil, err
	}
	ct, err := crypto.Seal(c.bootEncKey, nonce, plaintext, nil)
	if err != nil {
		return nil, err
	}
	m := &wire.EncryptedMessage{
		Type:       t,
		Version:    wire.ProtocolVersion,
		Nonce:      nonce,
		Counter:    0,
		Ciphertext: ct,
	}
	m.MAC = crypto.MAC(c.bootAuthKey, macParts(m)...)
	return m, nil
}
