// Package channel implements the arcwire secure channel: an
// authenticated, confidential, forward-secure point-to-point transform
// between plaintext and ciphertext envelopes, plus a concurrent
// per-peer registry.
//
// A channel is created by the Manager on first contact with a peer
// address, driven through the handshake by the transport layer, and
// destroyed (all secrets wiped) on explicit close, cleanup timeout or
// peer-initiated teardown. Channels own no sockets: every envelope
// they produce, including control replies, is handed back to the
// caller for transmission.
package channel
