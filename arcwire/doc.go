// Package arcwire provides the building blocks of an authenticated,
// confidential, forward-secure point-to-point channel.
//
// Peers hold Ed25519 identities, agree on session keys through an
// X25519 handshake bound to those identities, and exchange
// ChaCha20-Poly1305 envelopes with HMAC integrity, replay protection
// and periodic key rotation. A concurrency-safe manager keeps one
// channel per peer. Channels perform no I/O; a QUIC transport adapter
// carries envelopes over the network.
package arcwire
