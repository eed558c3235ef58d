// Package logsink provides the level-tagged message stream every named
// cache logs through. Messages are always prefixed "FileCache (<cache>):"
// per the wire format required by callers that grep cleaner output.
package logsink

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Sink is a per-cache logger.
type Sink struct {
	cache   string
	logger  zerolog.Logger
	verbose bool
}

// New creates a Sink for cache writing to w (os.Stderr if w is nil).
// verbose gates the two info-level cleanup-start messages required by
// §4.7/§4.8 of the cache spec; error and warn messages are always emitted.
func New(cache string, w io.Writer, verbose bool) *Sink {
	if w == nil {
		w = os.Stderr
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	logger := zerolog.New(console).With().Timestamp().Str("cache", cache).Logger()
	return &Sink{cache: cache, logger: logger, verbose: verbose}
}

func (s *Sink) format(msg string) string {
	return fmt.Sprintf("FileCache (%s): %s", s.cache, msg)
}

// Info logs a message at info level only when verbose mode is enabled.
func (s *Sink) Info(msg string) {
	if !s.verbose {
		return
	}
	s.logger.Info().Msg(s.format(msg))
}

// Infof is the formatted variant of Info.
func (s *Sink) Infof(format string, args ...any) {
	s.Info(fmt.Sprintf(format, args...))
}

// Warn logs a message at warn level unconditionally, used for
// policy-driven unknown-file handling.
func (s *Sink) Warn(msg string) {
	s.logger.Warn().Msg(s.format(msg))
}

// Warnf is the formatted variant of Warn.
func (s *Sink) Warnf(format string, args ...any) {
	s.Warn(fmt.Sprintf(format, args...))
}

// Error logs a message at error level unconditionally, for unexpected I/O
// encountered by a cleaner (cleaners never surface errors to callers).
func (s *Sink) Error(err error, msg string) {
	s.logger.Error().Err(err).Msg(s.format(msg))
}

// Errorf is the formatted variant of Error.
func (s *Sink) Errorf(err error, format string, args ...any) {
	s.Error(err, fmt.Sprintf(format, args...))
}
