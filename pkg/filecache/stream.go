package filecache

import (
	"io"
	"os"
)

// ReadStream is a lazily-opened reader over a committed permanent file.
// The underlying file is not opened until the first Read call, so a
// stale sweep racing between Get and the caller's first read surfaces as
// a read error rather than ever exposing partial content from a
// half-written file (there is none to expose — a permanent file is only
// ever created by a completed rename).
type ReadStream struct {
	path string
	file *os.File
}

// newReadStream wraps path in a lazily-opened ReadStream.
func newReadStream(path string) *ReadStream {
	return &ReadStream{path: path}
}

// Read implements io.Reader, opening the underlying file on first call.
func (s *ReadStream) Read(p []byte) (int, error) {
	if s.file == nil {
		f, err := os.Open(s.path)
		if err != nil {
			return 0, &IOError{Op: "open", Path: s.path, Err: err}
		}
		s.file = f
	}
	return s.file.Read(p)
}

// Close implements io.Closer. Closing before the first Read is a no-op.
func (s *ReadStream) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

var _ io.ReadCloser = (*ReadStream)(nil)
