package filecache

import (
	"bytes"
	"fmt"
	"io"
)

// Producer is the sum type a caller supplies to Put/Execute: raw bytes, a
// sequence of chunks, a lazy stream of chunks, or a thunk that yields any
// of those when invoked. Anything else is rejected with ErrBadProducer.
type Producer interface{ isProducer() }

// Bytes is a producer that is already fully materialized in memory.
type Bytes []byte

func (Bytes) isProducer() {}

// Chunks is a producer whose output is the concatenation of each chunk.
type Chunks [][]byte

func (Chunks) isProducer() {}

// ChunkIter is a lazy stream of chunks. yield is called with each chunk in
// turn; returning false from yield stops iteration early (mirroring the
// Go 1.23 range-over-func iterator shape, but not requiring it so the
// module stays usable on slightly older toolchains).
type ChunkIter func(yield func([]byte) bool) error

func (ChunkIter) isProducer() {}

// Thunk is a zero-argument function returning another Producer, resolved
// exactly once.
type Thunk func() (Producer, error)

func (Thunk) isProducer() {}

// ErrBadProducer is returned when a value that does not satisfy Producer
// (or whose Thunk chain bottoms out in one that doesn't) is supplied.
var ErrBadProducer = fmt.Errorf("filecache: bad producer")

// writeProducer streams p's bytes into w, resolving Thunks as it goes.
// It never buffers the whole producer in memory except for Bytes/Chunks,
// which are already fully materialized by the caller.
func writeProducer(w io.Writer, p Producer) error {
	for {
		switch v := p.(type) {
		case Bytes:
			_, err := w.Write(v)
			return err
		case Chunks:
			for _, c := range v {
				if _, err := w.Write(c); err != nil {
					return err
				}
			}
			return nil
		case ChunkIter:
			var writeErr error
			err := v(func(chunk []byte) bool {
				if _, werr := w.Write(chunk); werr != nil {
					writeErr = werr
					return false
				}
				return true
			})
			if writeErr != nil {
				return writeErr
			}
			return err
		case Thunk:
			next, err := v()
			if err != nil {
				return err
			}
			if next == nil {
				return fmt.Errorf("%w: thunk returned nil", ErrBadProducer)
			}
			p = next
			continue
		case nil:
			return fmt.Errorf("%w: nil producer", ErrBadProducer)
		default:
			return fmt.Errorf("%w: %T", ErrBadProducer, v)
		}
	}
}

// Concat resolves any Producer fully into memory, used by tests asserting
// round-trip content equality.
func Concat(p Producer) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeProducer(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
