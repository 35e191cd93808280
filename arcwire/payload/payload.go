// Package payload packs application plaintext before it enters a
// secure channel. Packing compresses with LZ4 when that actually
// shrinks the payload and prefixes a one-byte flag so the receiver
// knows whether to inflate. Pack before EncryptMessage, Unpack after
// DecryptMessage; ciphertext is incompressible, so compressing after
// encryption would be wasted work.
package payload

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var (
	ErrCompressionFailed   = errors.New("payload: compression failed")
	ErrDecompressionFailed = errors.New("payload: decompression failed")
	ErrTruncated           = errors.New("payload: truncated")
	ErrBadFlag             = errors.New("payload: unknown packing flag")
)

// CompressionLevel controls the speed/ratio tradeoff.
type CompressionLevel int

const (
	CompressionFast    CompressionLevel = iota // Fastest, lower ratio
	CompressionDefault                         // Balanced
	CompressionBest                            // Best ratio, slower
)

const (
	flagRaw        = 0x00
	flagCompressed = 0x01
)

// MinCompressSize is the payload size below which compression is not
// attempted; the LZ4 frame header alone would dominate.
const MinCompressSize = 64

// compressorPool reuses LZ4 writers to reduce allocations.
var compressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewWriter(nil)
	},
}

// decompressorPool reuses LZ4 readers.
var decompressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewReader(nil)
	},
}

// Compress compresses data using LZ4.
func Compress(data []byte, level CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	w := compressorPool.Get().(*lz4.Writer)
	defer compressorPool.Put(w)

	w.Reset(&buf)

	switch level {
	case CompressionFast:
		_ = w.Apply(lz4.CompressionLevelOption(lz4.Fast))
	case CompressionBest:
		_ = w.Apply(lz4.CompressionLevelOption(lz4.Level9))
	default:
		_ = w.Apply(lz4.CompressionLevelOption(lz4.Level4))
	}

	if _, err := w.Write(data); err != nil {
		return nil, ErrCompressionFailed
	}
	if err := w.Close(); err != nil {
		return nil, ErrCompressionFailed
	}

	return buf.Bytes(), nil
}

// Decompress decompresses LZ4-compressed data.
func Decompress(data []byte) ([]byte, error) {
	r := decompressorPool.Get().(*lz4.Reader)
	defer decompressorPool.Put(r)

	r.Reset(bytes.NewReader(data))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, ErrDecompressionFailed
	}
	return buf.Bytes(), nil
}

// Pack returns flag||body, compressing only when the result is
// actually smaller than the input. Incompressible or tiny payloads
// pass through with the raw flag.
func Pack(data []byte, level CompressionLevel) ([]byte, error) {
	if len(data) >= MinCompressSize {
		compressed, err := Compress(data, level)
		if err == nil && len(compressed) < len(data) {
			out := make([]byte, 1+len(compressed))
			out[0] = flagCompressed
			copy(out[1:], compressed)
			return out, nil
		}
	}
	out := make([]byte, 1+len(data))
	out[0] = flagRaw
	copy(out[1:], data)
	return out, nil
}

// Unpack reverses Pack.
func Unpack(packed []byte) ([]byte, error) {
	if len(packed) < 1 {
		return nil, ErrTruncated
	}
	switch packed[0] {
	case flagRaw:
		return append([]byte(nil), packed[1:]...), nil
	case flagCompressed:
		return Decompress(packed[1:])
	default:
		return nil, ErrBadFlag
	}
}
