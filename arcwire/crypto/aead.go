package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKeySize   = errors.New("crypto: invalid key size for ChaCha20-Poly1305")
	ErrInvalidNonceSize = errors.New("crypto: invalid nonce size")
	ErrDecryptionFailed = errors.New("crypto: decryption failed")
)

const (
	// KeySize is the ChaCha20-Poly1305 key size.
	KeySize = chacha20poly1305.KeySize

	// NonceSize is the AEAD nonce size (96 bits).
	NonceSize = chacha20poly1305.NonceSize

	// Overhead is the Poly1305 authentication tag size.
	Overhead = chacha20poly1305.Overhead
)

// CounterNonce builds a 12-byte nonce from a message counter:
// 4 random bytes followed by the big-endian counter. The counter alone
// guarantees uniqueness under a given key; the random prefix is kept
// for wire compatibility.
func CounterNonce(counter uint64) ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:4]); err != nil {
		return nonce, err
	}
	binary.BigEndian.PutUint64(nonce[4:], counter)
	return nonce, nil
}

// RandomNonce builds a fully random 12-byte nonce. Used for handshake
// messages, which carry no counter.
func RandomNonce() ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nonce, err
	}
	return nonce, nil
}

// Seal encrypts and authenticates plaintext under key with the given
// nonce. The nonce travels in the envelope, so unlike a socket-owning
// cipher the caller controls it; counters make reuse impossible.
func Seal(key []byte, nonce [NonceSize]byte, plaintext, additionalData []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce[:], plaintext, additionalData), nil
}

// Open decrypts and verifies ciphertext produced by Seal.
func Open(key []byte, nonce [NonceSize]byte, ciphertext, additionalData []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if len(ciphertext) < Overhead {
		return nil, ErrDecryptionFailed
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce[:], ciphertext, additionalData)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
