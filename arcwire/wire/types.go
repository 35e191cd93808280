package wire

// ProtocolVersion is the current envelope version. Receivers reject
// versions greater than their own.
const ProtocolVersion uint8 = 1

// MessageType discriminates the envelope payload. The set is closed:
// channels dispatch on it exhaustively.
type MessageType uint8

const (
	MessageTypeHandshake         MessageType = 1
	MessageTypeHandshakeResponse MessageType = 2
	MessageTypeKeyRotation       MessageType = 3
	MessageTypeKeyRotationAck    MessageType = 4
	MessageTypeData              MessageType = 5
	MessageTypePing              MessageType = 6
	MessageTypePong              MessageType = 7
	MessageTypeClose             MessageType = 8
)

// IsHandshake reports whether t is one of the two handshake types,
// which travel under the bootstrap keys and carry no counter.
func (t MessageType) IsHandshake() bool {
	return t == MessageTypeHandshake || t == MessageTypeHandshakeResponse
}

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	return t >= MessageTypeHandshake && t <= MessageTypeClose
}

func (t MessageType) String() string {
	switch t {
	case MessageTypeHandshake:
		return "HANDSHAKE"
	case MessageTypeHandshakeResponse:
		return "HANDSHAKE_RESPONSE"
	case MessageTypeKeyRotation:
		return "KEY_ROTATION"
	case MessageTypeKeyRotationAck:
		return "KEY_ROTATION_ACK"
	case MessageTypeData:
		return "DATA"
	case MessageTypePing:
		return "PING"
	case MessageTypePong:
		return "PONG"
	case MessageTypeClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}
