// Package quic carries arcwire envelopes over QUIC streams. The TLS
// layer is transport plumbing only: peer identity is proven by the
// channel handshake, not by certificates.
package quic

import (
	"context"
	"net"

	q "github.com/quic-go/quic-go"

	"github.com/arcwire/arcwire/arcwire/wire"
)

type Listener struct {
	inner *q.Listener
}

func Listen(addr string) (*Listener, error) {
	tlsConf, err := NewServerTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, tlsConf, &q.Config{})
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln}, nil
}

func (l *Listener) Accept(ctx context.Context) (*q.Conn, error) {
	return l.inner.Accept(ctx)
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) AddrString() string {
	if l.inner == nil {
		return ""
	}
	return l.inner.Addr().String()
}

func (l *Listener) Close() error { return l.inner.Close() }

func Dial(ctx context.Context, addr string) (*q.Conn, error) {
	tlsConf, err := NewClientTLSConfig()
	if err != nil {
		return nil, err
	}
	return q.DialAddr(ctx, addr, tlsConf, &q.Config{})
}

// OpenEnvelopeStream opens a bidirectional stream for envelope traffic.
func OpenEnvelopeStream(ctx context.Context, conn *q.Conn) (*q.Stream, error) {
	return conn.OpenStreamSync(ctx)
}

// AcceptEnvelopeStream accepts the peer's envelope stream.
func AcceptEnvelopeStream(ctx context.Context, conn *q.Conn) (*q.Stream, error) {
	return conn.AcceptStream(ctx)
}

// SendEnvelope writes one length-prefixed envelope to the stream.
func SendEnvelope(stream *q.Stream, m *wire.EncryptedMessage) error {
	return wire.WriteEnvelope(stream, m)
}

// RecvEnvelope reads one length-prefixed envelope from the stream.
func RecvEnvelope(stream *q.Stream) (*wire.EncryptedMessage, error) {
	return wire.ReadEnvelope(stream)
}
