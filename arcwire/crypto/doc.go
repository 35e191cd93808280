// Package crypto provides the cryptographic primitives for arcwire
// secure channels.
//
// Design goals:
//   - Fast on commodity hardware (no AES-NI required)
//   - Forward secrecy via ephemeral X25519 key exchange
//   - AEAD encryption via ChaCha20-Poly1305 (RFC 8439)
//   - Key derivation via HKDF-SHA256 with domain-separated labels
//   - Envelope authentication via HMAC-SHA256, verified in constant time
package crypto
