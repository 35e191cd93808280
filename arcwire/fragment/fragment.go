// Package fragment splits encoded envelopes into Reed-Solomon
// protected fragments for lossy datagram transports. A receiver can
// reassemble the envelope from any DataShards of the
// DataShards+ParityShards fragments, so up to ParityShards datagrams
// may be dropped per envelope without retransmission.
//
// Envelopes are authenticated end to end by the channel layer;
// fragmentation happens strictly outside the encryption boundary and
// adds no security properties of its own.
package fragment

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

var (
	ErrTooManyLost   = errors.New("fragment: too many fragments lost, cannot recover")
	ErrInvalidConfig = errors.New("fragment: invalid data/parity configuration")
	ErrBadFragment   = errors.New("fragment: malformed fragment")
	ErrMixedGroups   = errors.New("fragment: fragments from different envelopes")
)

// headerSize is index(4) + dataShards(4) + parityShards(4) + origLen(4).
const headerSize = 16

// Fragment is one shard of an encoded envelope plus enough metadata to
// reassemble without out-of-band state.
type Fragment struct {
	Index        uint32
	DataShards   uint32
	ParityShards uint32
	OrigLen      uint32
	Shard        []byte
}

// Encode serializes the fragment for transmission.
func (f *Fragment) Encode() []byte {
	buf := make([]byte, headerSize+len(f.Shard))
	binary.BigEndian.PutUint32(buf[0:4], f.Index)
	binary.BigEndian.PutUint32(buf[4:8], f.DataShards)
	binary.BigEndian.PutUint32(buf[8:12], f.ParityShards)
	binary.BigEndian.PutUint32(buf[12:16], f.OrigLen)
	copy(buf[headerSize:], f.Shard)
	return buf
}

// DecodeFragment parses a serialized fragment.
func DecodeFragment(data []byte) (*Fragment, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadFragment, len(data))
	}
	f := &Fragment{
		Index:        binary.BigEndian.Uint32(data[0:4]),
		DataShards:   binary.BigEndian.Uint32(data[4:8]),
		ParityShards: binary.BigEndian.Uint32(data[8:12]),
		OrigLen:      binary.BigEndian.Uint32(data[12:16]),
		Shard:        append([]byte(nil), data[headerSize:]...),
	}
	if f.DataShards == 0 || f.ParityShards == 0 {
		return nil, fmt.Errorf("%w: %d+%d shards", ErrBadFragment, f.DataShards, f.ParityShards)
	}
	if f.Index >= f.DataShards+f.ParityShards {
		return nil, fmt.Errorf("%w: index %d out of range", ErrBadFragment, f.Index)
	}
	return f, nil
}

// Fragmenter splits envelopes into fragments and reassembles them.
type Fragmenter struct {
	enc          reedsolomon.Encoder
	dataShards   int
	parityShards int
}

// NewFragmenter creates a fragmenter with the given shard geometry.
// Up to parityShards fragments per envelope may be lost.
func NewFragmenter(dataShards, parityShards int) (*Fragmenter, error) {
	if dataShards <= 0 || parityShards <= 0 {
		return nil, ErrInvalidConfig
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &Fragmenter{
		enc:          enc,
		dataShards:   dataShards,
		parityShards: parityShards,
	}, nil
}

// DataShards returns the number of data shards per envelope.
func (f *Fragmenter) DataShards() int { return f.dataShards }

// ParityShards returns the number of parity shards per envelope.
func (f *Fragmenter) ParityShards() int { return f.parityShards }

// TotalShards returns data plus parity shards per envelope.
func (f *Fragmenter) TotalShards() int { return f.dataShards + f.parityShards }

// Split shards an encoded envelope into TotalShards fragments.
func (f *Fragmenter) Split(envelope []byte) ([]*Fragment, error) {
	if len(envelope) == 0 {
		return nil, fmt.Errorf("%w: empty envelope", ErrBadFragment)
	}
	shards, err := f.enc.Split(envelope)
	if err != nil {
		return nil, err
	}
	if err := f.enc.Encode(shards); err != nil {
		return nil, err
	}

	out := make([]*Fragment, len(shards))
	for i, shard := range shards {
		out[i] = &Fragment{
			Index:        uint32(i),
			DataShards:   uint32(f.dataShards),
			ParityShards: uint32(f.parityShards),
			OrigLen:      uint32(len(envelope)),
			Shard:        shard,
		}
	}
	return out, nil
}

// Reassemble reconstructs the original envelope bytes from the
// surviving fragments. Any DataShards of the original fragments
// suffice; fewer returns ErrTooManyLost.
func (f *Fragmenter) Reassemble(fragments []*Fragment) ([]byte, error) {
	if len(fragments) == 0 {
		return nil, ErrTooManyLost
	}

	first := fragments[0]
	if int(first.DataShards) != f.dataShards || int(first.ParityShards) != f.parityShards {
		return nil, fmt.Errorf("%w: geometry %d+%d", ErrBadFragment, first.DataShards, first.ParityShards)
	}

	shards := make([][]byte, f.TotalShards())
	for _, frag := range fragments {
		if frag.DataShards != first.DataShards ||
			frag.ParityShards != first.ParityShards ||
			frag.OrigLen != first.OrigLen {
			return nil, ErrMixedGroups
		}
		if int(frag.Index) >= len(shards) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrBadFragment, frag.Index)
		}
		shards[frag.Index] = frag.Shard
	}

	if err := f.enc.ReconstructData(shards); err != nil {
		if err == reedsolomon.ErrTooFewShards {
			return nil, ErrTooManyLost
		}
		return nil, err
	}

	out := make([]byte, 0, first.OrigLen)
	for i := 0; i < f.dataShards && len(out) < int(first.OrigLen); i++ {
		remaining := int(first.OrigLen) - len(out)
		if remaining >= len(shards[i]) {
			out = append(out, shards[i]...)
		} else {
			out = append(out, shards[i][:remaining]...)
		}
	}
	return out, nil
}
