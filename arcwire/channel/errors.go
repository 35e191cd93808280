package channel

import "errors"

// Protocol and cryptographic violations are returned as typed failures;
// the channel never retries internally. Authentication, replay and
// signature failures signal a malicious or broken peer and warrant
// disconnection; size-limit and state errors indicate caller misuse.
var (
	// ErrProtocolState: the operation is not valid in the channel's
	// current state.
	ErrProtocolState = errors.New("channel: operation invalid in current state")

	// ErrVersion: the peer speaks a protocol version newer than ours.
	ErrVersion = errors.New("channel: unsupported protocol version")

	// ErrFreshness: stale handshake timestamp or counter older than the
	// reordering tolerance.
	ErrFreshness = errors.New("channel: stale handshake or counter")

	// ErrAuthentication: HMAC mismatch, detected before any decryption.
	ErrAuthentication = errors.New("channel: message authentication failed")

	// ErrReplay: a message counter was already accepted.
	ErrReplay = errors.New("channel: replayed message counter")

	// ErrDecryption: AEAD tag mismatch or corrupted ciphertext.
	ErrDecryption = errors.New("channel: decryption failed")

	// ErrKeyAgreement: malformed peer key material or ECDH failure.
	ErrKeyAgreement = errors.New("channel: key agreement failed")

	// ErrSignature: the peer's identity proof did not verify.
	ErrSignature = errors.New("channel: identity proof verification failed")

	// ErrSizeLimit: plaintext larger than MaxMessageSize.
	ErrSizeLimit = errors.New("channel: payload exceeds size limit")
)
