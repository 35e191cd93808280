package wire

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
	"time"
)

func sampleEnvelope() *EncryptedMessage {
	m := &EncryptedMessage{
		Type:       MessageTypeData,
		Version:    ProtocolVersion,
		Counter:    77,
		Ciphertext: []byte("opaque bytes with tag"),
	}
	rand.Read(m.Nonce[:])
	rand.Read(m.MAC[:])
	return m
}

func TestEnvelopeEncodeDecode(t *testing.T) {
	m := sampleEnvelope()

	encoded, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if decoded.Type != m.Type || decoded.Version != m.Version || decoded.Counter != m.Counter {
		t.Fatalf("header fields mismatch")
	}
	if decoded.Nonce != m.Nonce || decoded.MAC != m.MAC {
		t.Fatalf("nonce/mac mismatch")
	}
	if !bytes.Equal(decoded.Ciphertext, m.Ciphertext) {
		t.Fatalf("ciphertext mismatch")
	}
}

func TestEnvelopeDecodeRejectsGarbage(t *testing.T) {
	m := sampleEnvelope()
	encoded, _ := m.Encode()

	if _, err := Decode(encoded[:10]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if _, err := Decode(append(encoded, 0xAA)); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated for trailing byte, got %v", err)
	}

	bad := make([]byte, len(encoded))
	copy(bad, encoded)
	bad[0] = 0 // invalid type
	if _, err := Decode(bad); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestEnvelopeStreamFraming(t *testing.T) {
	first := sampleEnvelope()
	second := sampleEnvelope()
	second.Type = MessageTypePing
	second.Counter = 78
	second.Ciphertext = nil

	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, first); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}
	if err := WriteEnvelope(&buf, second); err != nil {
		t.Fatalf("WriteEnvelope: %v", err)
	}

	got1, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	got2, err := ReadEnvelope(&buf)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}

	if got1.Counter != first.Counter || !bytes.Equal(got1.Ciphertext, first.Ciphertext) {
		t.Fatalf("first envelope mismatch")
	}
	if got2.Type != MessageTypePing || len(got2.Ciphertext) != 0 {
		t.Fatalf("second envelope mismatch")
	}
}

func TestEncodeRejectsOversizedCiphertext(t *testing.T) {
	m := sampleEnvelope()
	m.Ciphertext = make([]byte, MaxCiphertextSize+1)
	if _, err := m.Encode(); !errors.Is(err, ErrCiphertextBounds) {
		t.Fatalf("expected ErrCiphertextBounds, got %v", err)
	}
}

func TestHandshakePayloadRoundTrip(t *testing.T) {
	p := HandshakePayload{
		Version:   ProtocolVersion,
		Timestamp: time.Now().Unix(),
	}
	rand.Read(p.EphemeralPub[:])
	rand.Read(p.IdentityProof[:])

	decoded, err := DecodeHandshakePayload(p.Encode())
	if err != nil {
		t.Fatalf("DecodeHandshakePayload: %v", err)
	}
	if decoded != p {
		t.Fatalf("handshake payload mismatch")
	}

	if _, err := DecodeHandshakePayload(p.Encode()[:50]); !errors.Is(err, ErrInvalidHandshake) {
		t.Fatalf("expected ErrInvalidHandshake, got %v", err)
	}
}

func TestMessageTypeClassification(t *testing.T) {
	if !MessageTypeHandshake.IsHandshake() || !MessageTypeHandshakeResponse.IsHandshake() {
		t.Fatalf("handshake types misclassified")
	}
	if MessageTypeData.IsHandshake() || MessageTypeClose.IsHandshake() {
		t.Fatalf("non-handshake types misclassified")
	}
	if MessageType(0).Valid() || MessageType(9).Valid() {
		t.Fatalf("out-of-range types reported valid")
	}
	if MessageTypeKeyRotation.String() != "KEY_ROTATION" {
		t.Fatalf("unexpected String: %s", MessageTypeKeyRotation.String())
	}
}
