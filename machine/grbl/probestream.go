package grbl

import (
	"bytes"
	"errors"

	"github.com/mastercactapus/alevel/machine"
)

var (
	// ErrNoRecord means no complete probe record is buffered yet.
	ErrNoRecord = errors.New("no complete probe record")

	// ErrMalformedProbe is returned for a record that failed to parse.
	// The record is dropped and later records are still available.
	ErrMalformedProbe = errors.New("malformed probe record")
)

const (
	maxBuffered  = 5000
	keepBuffered = 2000
)

var probeOpen = []byte("[PRB:")

// ProbeStream collects controller output and extracts probe records from
// it. Data may arrive in arbitrary chunks; a record split across writes is
// held until its closing bracket arrives.
type ProbeStream struct {
	buf []byte
}

// Write appends controller output. It never fails.
func (s *ProbeStream) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	if len(s.buf) > maxBuffered {
		s.buf = append([]byte(nil), s.buf[len(s.buf)-keepBuffered:]...)
	}
	return len(p), nil
}

// Buffered returns the number of bytes waiting to be parsed.
func (s *ProbeStream) Buffered() int { return len(s.buf) }

// Next returns the next complete probe record, in machine coordinates.
//
// ErrNoRecord means more data is needed. An error wrapping
// ErrMalformedProbe means one record was discarded; call Next again.
func (s *ProbeStream) Next() (*machine.ProbeResult, error) {
	start := bytes.Index(s.buf, probeOpen)
	if start < 0 {
		// keep a tail that might be the start of a marker
		if keep := len(probeOpen) - 1; len(s.buf) > keep {
			s.buf = append(s.buf[:0], s.buf[len(s.buf)-keep:]...)
		}
		return nil, ErrNoRecord
	}
	end := bytes.IndexByte(s.buf[start:], ']')
	if end < 0 {
		s.buf = append(s.buf[:0], s.buf[start:]...)
		return nil, ErrNoRecord
	}
	end += start
	// an unterminated record followed by a complete one
	start += bytes.LastIndex(s.buf[start:end], probeOpen)

	rec := string(s.buf[start : end+1])
	s.buf = append(s.buf[:0], s.buf[end+1:]...)

	return parseProbe(rec)
}
