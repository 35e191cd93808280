package channel

import (
	"crypto/ed25519"
	"sync"

	"github.com/arcwire/arcwire/arcwire/identity"
)

// Manager is the concurrency-safe registry of secure channels, keyed
// by peer address. Registry mutations are guarded by one lock; each
// channel's protocol state is guarded by its own, so traffic on
// distinct channels never contends. The registry lock is never held
// across a channel close.
type Manager struct {
	identity identity.KeyPair

	mu       sync.RWMutex
	channels map[string]*SecureChannel
}

// NewManager creates an empty registry operating under the given
// long-term identity.
func NewManager(id identity.KeyPair) *Manager {
	return &Manager{
		identity: id,
		channels: make(map[string]*SecureChannel),
	}
}

// PublicKey returns the manager's long-term identity public key.
func (m *Manager) PublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), m.identity.PublicKey...)
}

// EstablishChannel returns the channel registered for peerAddr,
// creating one in state New if none exists. At most one channel per
// peer address; concurrent callers for the same address all receive
// the same channel.
func (m *Manager) EstablishChannel(peerPub ed25519.PublicKey, peerAddr string) (*SecureChannel, error) {
	m.mu.RLock()
	ch, ok := m.channels[peerAddr]
	m.mu.RUnlock()
	if ok {
		return ch, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.channels[peerAddr]; ok {
		return ch, nil
	}
	ch, err := New(m.identity, peerPub, peerAddr)
	if err != nil {
		return nil, err
	}
	m.channels[peerAddr] = ch
	return ch, nil
}

// GetChannel looks up the channel for peerAddr.
func (m *Manager) GetChannel(peerAddr string) (*SecureChannel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[peerAddr]
	return ch, ok
}

// RemoveChannel closes and evicts the channel for peerAddr. Close
// errors are ignored; the wipe happens regardless.
func (m *Manager) RemoveChannel(peerAddr string) {
	m.mu.Lock()
	ch, ok := m.channels[peerAddr]
	delete(m.channels, peerAddr)
	m.mu.Unlock()

	if ok {
		_, _ = ch.Close()
	}
}

// CleanupChannels closes and evicts channels that are Closed or have
// timed out, returning how many were removed. Intended to run on a
// periodic maintenance timer owned by the transport layer.
func (m *Manager) CleanupChannels() int {
	m.mu.RLock()
	candidates := make([]*SecureChannel, 0, len(m.channels))
	for _, ch := range m.channels {
		candidates = append(candidates, ch)
	}
	m.mu.RUnlock()

	// Inspect and close without the registry lock held.
	evict := make([]*SecureChannel, 0)
	for _, ch := range candidates {
		if ch.State() == StateClosed || ch.HasTimedOut() {
			_, _ = ch.Close()
			evict = append(evict, ch)
		}
	}
	if len(evict) == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for _, ch := range evict {
		if m.channels[ch.PeerAddr()] == ch {
			delete(m.channels, ch.PeerAddr())
			removed++
		}
	}
	return removed
}

// Len returns the number of registered channels.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels)
}
