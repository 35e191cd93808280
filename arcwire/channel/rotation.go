package channel

import (
	"fmt"
	"time"

	"github.com/arcwire/arcwire/arcwire/crypto"
	"github.com/arcwire/arcwire/arcwire/wire"
)

// maybeRotateLocked starts a rotation cycle when the session keys have
// outlived KeyRotationInterval. The returned KeyRotation envelope
// (sealed under the still-current keys) carries our fresh ephemeral
// public key; the channel waits in KeyRotating for the peer's ack.
func (c *SecureChannel) maybeRotateLocked() (*wire.EncryptedMessage, error) {
	if c.state != StateEstablished || time.Since(c.lastRotation) <= KeyRotationInterval {
		return nil, nil
	}

	eph, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	env, err := c.sealLocked(wire.MessageTypeKeyRotation, eph.PublicKey[:])
	if err != nil {
		return nil, err
	}
	c.eph = &eph
	c.state = StateKeyRotating
	return env, nil
}

// processKeyRotationLocked handles the peer's KeyRotation message:
// adopt its new ephemeral, contribute our own, answer with an ack
// carrying our public half (sealed under the outgoing keys, which the
// peer still holds), then re-derive and install the new session keys.
// Identity keys are unchanged; only the ephemeral contribution moves.
func (c *SecureChannel) processKeyRotationLocked(payload []byte) (*wire.EncryptedMessage, error) {
	peerEph, err := parseEphemeral(payload)
	if err != nil {
		return nil, err
	}

	if c.eph == nil {
		eph, err := crypto.GenerateX25519()
		if err != nil {
			return nil, err
		}
		c.eph = &eph
	}

	// Built before the key switch: the peer can only open it with the
	// pre-rotation keys.
	ack, err := c.sealLocked(wire.MessageTypeKeyRotationAck, c.eph.PublicKey[:])
	if err != nil {
		return nil, err
	}

	if err := c.rederiveLocked(peerEph); err != nil {
		return nil, err
	}
	return ack, nil
}

// processRotationAckLocked completes a rotation we initiated.
func (c *SecureChannel) processRotationAckLocked(payload []byte) error {
	if c.state != StateKeyRotating || c.eph == nil {
		return fmt.Errorf("%w: rotation ack without pending rotation", ErrProtocolState)
	}
	peerEph, err := parseEphemeral(payload)
	if err != nil {
		return err
	}
	return c.rederiveLocked(peerEph)
}

// rederiveLocked re-runs key derivation with the pending ephemeral pair
// against peerEph, installs the new session keys, retires the ephemeral
// and resets the rotation clock. The channel returns to Established.
func (c *SecureChannel) rederiveLocked(peerEph [32]byte) error {
	ephShared, err := crypto.ECDH(c.eph.PrivateKey, peerEph)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyAgreement, err)
	}
	defer crypto.Zeroize(ephShared)

	idShared, err := identityShared(c.identity, c.peerPub)
	if err != nil {
		return err
	}
	defer crypto.Zeroize(idShared)

	c.installKeysLocked(ephShared, idShared)
	c.eph.Wipe()
	c.eph = nil
	c.state = StateEstablished
	c.lastRotation = time.Now()
	return nil
}

func parseEphemeral(payload []byte) ([32]byte, error) {
	var pub [32]byte
	if len(payload) != len(pub) {
		return pub, fmt.Errorf("%w: ephemeral key of %d bytes", ErrKeyAgreement, len(payload))
	}
	copy(pub[:], payload)
	return pub, nil
}
