package machine

import "io"

// An Adapter represents the minimal CNC machine interface.
type Adapter interface {
	State() chan State
	CurrentState() State

	// Feedback delivers controller output that is not a status report,
	// such as probe results, one chunk at a time. Chunks are not
	// guaranteed to hold whole lines.
	Feedback() chan []byte

	WriteByte(byte) error
	Write([]byte) (int, error)
	ReadFrom(io.Reader) (int64, error)
}
