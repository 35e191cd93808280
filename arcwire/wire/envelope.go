package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// NonceSize is the AEAD nonce length carried in the envelope.
	NonceSize = 12

	// MACSize is the HMAC-SHA256 length carried in the envelope.
	MACSize = 32

	// MaxMessageSize limits the plaintext accepted for encryption.
	MaxMessageSize = 10 << 20 // 10 MiB

	// MaxCiphertextSize bounds the ciphertext a decoder will accept:
	// the plaintext limit plus AEAD tag and packing slack.
	MaxCiphertextSize = MaxMessageSize + 1024

	// headerSize is the fixed portion of an encoded envelope:
	// type(1) + version(1) + nonce(12) + counter(8) + mac(32) + length(4).
	headerSize = 1 + 1 + NonceSize + 8 + MACSize + 4
)

var (
	ErrInvalidType      = errors.New("wire: invalid message type")
	ErrCiphertextBounds = errors.New("wire: ciphertext length out of bounds")
	ErrTruncated        = errors.New("wire: truncated envelope")
)

// EncryptedMessage is the authenticated ciphertext envelope exchanged
// between peers. Counter is 0 for handshake types. The MAC covers
// nonce, ciphertext, type and version (plus counter for non-handshake
// types) under the channel's auth key.
//
// Wire format, big endian:
//
//	1 byte:  type
//	1 byte:  protocol version
//	12 bytes: nonce
//	8 bytes: counter
//	32 bytes: mac
//	4 bytes: ciphertext length
//	N bytes: ciphertext (AEAD output, tag included)
type EncryptedMessage struct {
	Type       MessageType
	Version    uint8
	Nonce      [NonceSize]byte
	Counter    uint64
	MAC        [MACSize]byte
	Ciphertext []byte
}

// Encode serializes the envelope.
func (m *EncryptedMessage) Encode() ([]byte, error) {
	if !m.Type.Valid() {
		return nil, ErrInvalidType
	}
	if len(m.Ciphertext) > MaxCiphertextSize {
		return nil, ErrCiphertextBounds
	}

	out := make([]byte, headerSize+len(m.Ciphertext))
	out[0] = byte(m.Type)
	out[1] = m.Version
	copy(out[2:14], m.Nonce[:])
	binary.BigEndian.PutUint64(out[14:22], m.Counter)
	copy(out[22:54], m.MAC[:])
	binary.BigEndian.PutUint32(out[54:58], uint32(len(m.Ciphertext)))
	copy(out[headerSize:], m.Ciphertext)
	return out, nil
}

// Decode parses an envelope from data, rejecting trailing garbage.
func Decode(data []byte) (*EncryptedMessage, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}
	ctLen := binary.BigEndian.Uint32(data[54:58])
	if ctLen > MaxCiphertextSize {
		return nil, fmt.Errorf("%w: %d", ErrCiphertextBounds, ctLen)
	}
	if len(data) != headerSize+int(ctLen) {
		return nil, ErrTruncated
	}

	m := &EncryptedMessage{
		Type:    MessageType(data[0]),
		Version: data[1],
		Counter: binary.BigEndian.Uint64(data[14:22]),
	}
	if !m.Type.Valid() {
		return nil, ErrInvalidType
	}
	copy(m.Nonce[:], data[2:14])
	copy(m.MAC[:], data[22:54])
	m.Ciphertext = make([]byte, ctLen)
	copy(m.Ciphertext, data[headerSize:])
	return m, nil
}

// WriteEnvelope frames an envelope onto a stream.
func WriteEnvelope(w io.Writer, m *EncryptedMessage) error {
	encoded, err := m.Encode()
	if err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}

// ReadEnvelope reads one envelope from a stream. The header's length
// field delimits the ciphertext, so no outer framing is needed.
func ReadEnvelope(r io.Reader) (*EncryptedMessage, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	ctLen := binary.BigEndian.Uint32(header[54:58])
	if ctLen > MaxCiphertextSize {
		return nil, fmt.Errorf("%w: %d", ErrCiphertextBounds, ctLen)
	}
	buf := make([]byte, headerSize+int(ctLen))
	copy(buf, header[:])
	if ctLen > 0 {
		if _, err := io.ReadFull(r, buf[headerSize:]); err != nil {
			return nil, err
		}
	}
	return Decode(buf)
}
