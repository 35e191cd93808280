package channel

// State is the lifecycle phase of a SecureChannel.
//
// New -> HandshakeInitiated -> Established -> KeyRotating -> Established
// ... -> Closing -> Closed. A responder moves New -> Established
// directly when it processes an inbound handshake. Closed is terminal.
type State uint8

const (
	StateNew State = iota
	StateHandshakeInitiated
	StateEstablished
	StateKeyRotating
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateHandshakeInitiated:
		return "HandshakeInitiated"
	case StateEstablished:
		return "Established"
	case StateKeyRotating:
		return "KeyRotating"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// active reports whether application traffic may flow.
func (s State) active() bool {
	return s == StateEstablished || s == StateKeyRotating
}
