package channel

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arcwire/arcwire/arcwire/crypto"
	"github.com/arcwire/arcwire/arcwire/identity"
	"github.com/arcwire/arcwire/arcwire/wire"
)

const (
	// MaxMessageSize limits a single plaintext payload.
	MaxMessageSize = wire.MaxMessageSize

	// HandshakeTimeout bounds the age of a handshake timestamp.
	HandshakeTimeout = 60 * time.Second

	// KeyRotationInterval is the session key lifetime before a rotation
	// cycle is initiated.
	KeyRotationInterval = time.Hour

	// ChannelTimeout is the idle time after which a channel is
	// considered dead and eligible for cleanup.
	ChannelTimeout = 5 * time.Minute

	// MaxReplayWindow caps the set of recently accepted counters. On
	// overflow the window is pruned to its newest half.
	MaxReplayWindow = 1024

	// MaxCounterGap is the reordering tolerance: counters older than
	// the high watermark by more than this are dropped as stale. Held
	// to half the replay window so that any counter pruned from the
	// window is already below the staleness cutoff.
	MaxCounterGap = MaxReplayWindow / 2
)

// SecureChannel is the per-peer protocol state machine. It is a pure
// in-memory transform between plaintext and authenticated ciphertext
// envelopes: it owns no socket and performs no I/O, so every operation
// is CPU-bound and returns synchronously. Control envelopes that must
// reach the peer (handshake responses, rotation acks, pongs, closes)
// are returned to the caller for transmission.
//
// All methods serialize on the channel's own mutex; operations on
// distinct channels proceed in parallel.
type SecureChannel struct {
	mu sync.Mutex

	identity identity.KeyPair
	peerPub  ed25519.PublicKey
	peerAddr string

	state State
	// initiator records the handshake role; it fixes the public key
	// ordering fed to the KDF for the lifetime of the channel.
	initiator bool

	// Bootstrap keys, derived from identity ECDH alone. They protect
	// handshake payloads before any ephemeral secret exists.
	bootEncKey  []byte
	bootAuthKey []byte

	// eph is the pending ephemeral pair: the handshake pair before
	// establishment, or the rotation pair while a cycle is in flight.
	// Its private half is wiped as soon as a shared secret is derived.
	eph *crypto.X25519KeyPair

	sharedSecret []byte
	encKey       []byte
	authKey      []byte

	counterOut  uint64
	watermarkIn uint64
	seen        map[uint64]struct{}

	lastMessage  time.Time
	lastRotation time.Time
}

// New creates a channel toward the peer identified by peerPub at
// peerAddr, in state New with a fresh ephemeral pair. The peer public
// key must have been validated out of band by the identity layer.
func New(id identity.KeyPair, peerPub ed25519.PublicKey, peerAddr string) (*SecureChannel, error) {
	idShared, err := identityShared(id, peerPub)
	if err != nil {
		return nil, err
	}
	defer crypto.Zeroize(idShared)

	bootEnc, bootAuth, err := crypto.BootstrapKeys(idShared, id.PublicKey, peerPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyAgreement, err)
	}

	eph, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}

	return &SecureChannel{
		identity:    id,
		peerPub:     append(ed25519.PublicKey(nil), peerPub...),
		peerAddr:    peerAddr,
		state:       StateNew,
		bootEncKey:  bootEnc,
		bootAuthKey: bootAuth,
		eph:         &eph,
		seen:        make(map[uint64]struct{}),
		lastMessage: time.Now(),
	}, nil
}

// identityShared computes the X25519 agreement between our long-term
// key and the peer's. The caller zeroizes the result.
func identityShared(id identity.KeyPair, peerPub ed25519.PublicKey) ([]byte, error) {
	idPriv, err := id.ECDHPrivate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyAgreement, err)
	}
	defer crypto.Zeroize(idPriv[:])

	peerX, err := identity.PublicKeyToCurve25519(peerPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyAgreement, err)
	}
	shared, err := crypto.ECDH(idPriv, peerX)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyAgreement, err)
	}
	return shared, nil
}

// State returns the current lifecycle state.
func (c *SecureChannel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PeerAddr returns the peer address this channel is registered under.
func (c *SecureChannel) PeerAddr() string { return c.peerAddr }

// PeerPublicKey returns the peer's long-term identity key.
func (c *SecureChannel) PeerPublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), c.peerPub...)
}

// EncryptMessage transforms plaintext into an authenticated envelope.
// Valid only once the channel is established. When the session key
// lifetime has elapsed a rotation envelope is returned alongside; the
// caller must transmit the data envelope first and the rotation
// envelope after it. Both are sealed under the outgoing keys, and the
// peer stops accepting those keys once it processes the rotation.
func (c *SecureChannel) EncryptMessage(t wire.MessageType, plaintext []byte) (env, rotation *wire.EncryptedMessage, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.IsHandshake() || !t.Valid() {
		return nil, nil, fmt.Errorf("%w: cannot encrypt %s as application traffic", ErrProtocolState, t)
	}
	if !c.state.active() {
		return nil, nil, fmt.Errorf("%w: encrypt in state %s", ErrProtocolState, c.state)
	}
	if len(plaintext) > MaxMessageSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrSizeLimit, len(plaintext))
	}

	rotation, err = c.maybeRotateLocked()
	if err != nil {
		return nil, nil, err
	}

	env, err = c.sealLocked(t, plaintext)
	if err != nil {
		return nil, nil, err
	}
	c.lastMessage = time.Now()
	return env, rotation, nil
}

// DecryptMessage verifies and opens an inbound envelope. Control types
// are handled internally: the returned reply envelope, when non-nil,
// must be transmitted to the peer (rotation acks, pongs). Application
// plaintext is returned only for non-control types.
func (c *SecureChannel) DecryptMessage(msg *wire.EncryptedMessage) (plaintext []byte, reply *wire.EncryptedMessage, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Type.IsHandshake() {
		return nil, nil, fmt.Errorf("%w: route %s through ProcessHandshake", ErrProtocolState, msg.Type)
	}
	if !c.state.active() {
		return nil, nil, fmt.Errorf("%w: decrypt in state %s", ErrProtocolState, c.state)
	}

	// MAC before decryption: forged input is rejected without touching
	// the cipher.
	if !crypto.VerifyMAC(c.authKey, msg.MAC[:], macParts(msg)...) {
		return nil, nil, ErrAuthentication
	}
	if msg.Version > wire.ProtocolVersion {
		return nil, nil, fmt.Errorf("%w: peer version %d", ErrVersion, msg.Version)
	}

	if _, dup := c.seen[msg.Counter]; dup {
		return nil, nil, fmt.Errorf("%w: counter %d", ErrReplay, msg.Counter)
	}
	if c.watermarkIn > MaxCounterGap && msg.Counter < c.watermarkIn-MaxCounterGap {
		return nil, nil, fmt.Errorf("%w: counter %d below watermark %d", ErrFreshness, msg.Counter, c.watermarkIn)
	}
	c.recordCounterLocked(msg.Counter)

	pt, err := crypto.Open(c.encKey, msg.Nonce, msg.Ciphertext, nil)
	if err != nil {
		return nil, nil, ErrDecryption
	}
	c.lastMessage = time.Now()

	switch msg.Type {
	case wire.MessageTypeData:
		return pt, nil, nil
	case wire.MessageTypeKeyRotation:
		reply, err := c.processKeyRotationLocked(pt)
		return nil, reply, err
	case wire.MessageTypeKeyRotationAck:
		return nil, nil, c.processRotationAckLocked(pt)
	case wire.MessageTypePing:
		reply, err := c.sealLocked(wire.MessageTypePong, pt)
		return nil, reply, err
	case wire.MessageTypePong:
		return nil, nil, nil
	case wire.MessageTypeClose:
		c.state = StateClosing
		c.teardownLocked()
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: unhandled message type %d", ErrProtocolState, msg.Type)
	}
}

// Ping builds a timestamped liveness probe. The peer auto-replies with
// a Pong from DecryptMessage.
func (c *SecureChannel) Ping() (*wire.EncryptedMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.active() {
		return nil, fmt.Errorf("%w: ping in state %s", ErrProtocolState, c.state)
	}
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().Unix()))
	env, err := c.sealLocked(wire.MessageTypePing, ts[:])
	if err != nil {
		return nil, err
	}
	c.lastMessage = time.Now()
	return env, nil
}

// HasTimedOut reports whether the channel has been idle longer than
// ChannelTimeout.
func (c *SecureChannel) HasTimedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastMessage) > ChannelTimeout
}

// Close tears the channel down and wipes all key material. If the
// channel was active, a best-effort Close envelope is returned for the
// caller to transmit before discarding the channel. Close is
// idempotent.
func (c *SecureChannel) Close() (*wire.EncryptedMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return nil, nil
	}

	var env *wire.EncryptedMessage
	if c.state.active() {
		c.state = StateClosing
		// Notification is best effort; the wipe happens regardless.
		env, _ = c.sealLocked(wire.MessageTypeClose, nil)
	}
	c.teardownLocked()
	return env, nil
}

// sealLocked builds an envelope under the current session keys.
func (c *SecureChannel) sealLocked(t wire.MessageType, plaintext []byte) (*wire.EncryptedMessage, error) {
	nonce, err := crypto.CounterNonce(c.counterOut)
	if err != nil {
		return nil, err
	}
	ct, err := crypto.Seal(c.encKey, nonce, plaintext, nil)
	if err != nil {
		return nil, err
	}
	m := &wire.EncryptedMessage{
		Type:       t,
		Version:    wire.ProtocolVersion,
		Nonce:      nonce,
		Counter:    c.counterOut,
		Ciphertext: ct,
	}
	m.MAC = crypto.MAC(c.authKey, macParts(m)...)
	c.counterOut++
	return m, nil
}

// macParts assembles the authenticated fields in wire order:
// nonce, ciphertext, type, counter (non-handshake only), version.
func macParts(m *wire.EncryptedMessage) [][]byte {
	parts := make([][]byte, 0, 5)
	parts = append(parts, m.Nonce[:], m.Ciphertext, []byte{byte(m.Type)})
	if !m.Type.IsHandshake() {
		var ctr [8]byte
		binary.BigEndian.PutUint64(ctr[:], m.Counter)
		parts = append(parts, ctr[:])
	}
	return append(parts, []byte{m.Version})
}

// recordCounterLocked admits a counter into the replay window, pruning
// the window to its newest half on overflow and advancing the high
// watermark. The retained half always spans more than MaxCounterGap
// distinct counters below the watermark, so pruned counters fall under
// the staleness cutoff and can never be replayed.
func (c *SecureChannel) recordCounterLocked(counter uint64) {
	c.seen[counter] = struct{}{}
	if len(c.seen) > MaxReplayWindow {
		counters := make([]uint64, 0, len(c.seen))
		for k := range c.seen {
			counters = append(counters, k)
		}
		sort.Slice(counters, func(i, j int) bool { return counters[i] < counters[j] })
		for _, k := range counters[:len(counters)/2] {
			delete(c.seen, k)
		}
	}
	if counter > c.watermarkIn {
		c.watermarkIn = counter
	}
}

// installKeysLocked derives and installs session keys from the two ECDH
// outputs, wiping the previous generation.
func (c *SecureChannel) installKeysLocked(ephShared, idShared []byte) {
	initiatorID := []byte(c.identity.PublicKey)
	responderID := []byte(c.peerPub)
	if !c.initiator {
		initiatorID, responderID = responderID, initiatorID
	}

	shared, encKey, authKey := crypto.SessionKeys(ephShared, idShared, initiatorID, responderID)

	crypto.Zeroize(c.sharedSecret)
	crypto.Zeroize(c.encKey)
	crypto.Zeroize(c.authKey)
	c.sharedSecret = shared
	c.encKey = encKey
	c.authKey = authKey
}

// teardownLocked wipes every secret the channel holds. Called on close
// and on peer-initiated teardown; the state becomes Closed either way.
func (c *SecureChannel) teardownLocked() {
	crypto.Zeroize(c.sharedSecret)
	crypto.Zeroize(c.encKey)
	crypto.Zeroize(c.authKey)
	crypto.Zeroize(c.bootEncKey)
	crypto.Zeroize(c.bootAuthKey)
	c.sharedSecret = nil
	c.encKey = nil
	c.authKey = nil
	if c.eph != nil {
		c.eph.Wipe()
		c.eph = nil
	}
	c.seen = nil
	c.state = StateClosed
}

// ephemeralDigest is the value the identity proof signs.
func ephemeralDigest(ephPub [32]byte) []byte {
	sum := sha256.Sum256(ephPub[:])
	return sum[:]
}
