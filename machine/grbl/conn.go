package grbl

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/mastercactapus/alevel/gcode"
)

// rxBufferSize is the size of grbl's serial receive buffer.
const rxBufferSize = 128

// ErrGrblReset will be returned from write methods if a reset is encountered
// before all commands are run.
var ErrGrblReset = errors.New("grbl reset")

// ErrLineTooLong is returned for a line that can never fit the device's
// receive buffer.
var ErrLineTooLong = errors.New("line exceeds grbl receive buffer")

// Error is a command rejected by grbl.
type Error struct {
	// Code is the numeric error (grbl 1.1), or 0 when grbl sent text.
	Code int
	Text string
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return "grbl error: " + e.Text
	}
	if msg, ok := errorMessages[e.Code]; ok {
		return fmt.Sprintf("error:%d %s", e.Code, msg)
	}
	return fmt.Sprintf("error:%d", e.Code)
}

var errorMessages = map[int]string{
	1:  "expected command letter",
	2:  "bad number format",
	3:  "invalid $ statement",
	9:  "G-code locked out during alarm or jog state",
	15: "jog target exceeds machine travel",
	20: "unsupported or invalid g-code command",
	21: "more than one g-code command from the same modal group",
	22: "feed rate has not yet been set or is undefined",
	23: "g-code command requires an integer value",
	24: "more than one g-code command that requires axis words",
	25: "repeated g-code word",
	26: "no axis words in command",
	33: "motion target is invalid",
	36: "unused value words",
	37: "G43.1 tool length offset not assigned to Z",
}

// parseError reads an "error:..." response.
func parseError(line string) *Error {
	text := strings.TrimSpace(strings.TrimPrefix(line, "error:"))
	if code, err := strconv.Atoi(text); err == nil {
		return &Error{Code: code}
	}
	return &Error{Text: text}
}

// rxBuffer tracks how much of grbl's receive buffer is used by lines that
// have been sent but not acknowledged.
type rxBuffer struct {
	used    int
	pending []int

	sent  int64
	acked int64
}

func (b *rxBuffer) fits(n int) bool { return b.used+n <= rxBufferSize }

// push records a sent line and returns its sequence number.
func (b *rxBuffer) push(n int) int64 {
	b.used += n
	b.pending = append(b.pending, n)
	b.sent++
	return b.sent
}

func (b *rxBuffer) ack() {
	if len(b.pending) == 0 {
		return
	}
	b.used -= b.pending[0]
	b.pending = b.pending[1:]
	b.acked++
}

// reset forgets every pending line; grbl dropped them.
func (b *rxBuffer) reset() {
	b.used = 0
	b.pending = nil
	b.acked = b.sent
}

// Conn represents a direct connection to a Grbl controller. Lines are
// streamed with character counting: a line is sent only once it fits in
// the space grbl has left after the unacknowledged lines.
type Conn struct {
	rw io.ReadWriter

	readBuf []byte
	scan    *bufio.Scanner
	resetCh chan struct{}
	closeCh chan struct{}
	closed  sync.Once

	// ackCh holds at most one response per unacknowledged line, so the
	// reader never waits on a writer.
	ackCh chan error

	// mx guards writes to rw; wMx serializes streaming callers.
	mx  sync.Mutex
	wMx sync.Mutex

	rx rxBuffer
}

// NewConn creates a new Conn using the provided ReadWriter for data.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		scan:    bufio.NewScanner(rw),
		rw:      rw,
		ackCh:   make(chan error, rxBufferSize),
		resetCh: make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
}

// Close will abort any in-progress writes and close the
// underlying ReadWriter, if it implements io.Closer.
func (c *Conn) Close() error {
	c.closed.Do(func() { close(c.closeCh) })
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

// awaitAck blocks for the next response to a sent line. A reset or close
// takes priority over queued acknowledgements.
func (c *Conn) awaitAck() error {
	if c.isClosed() {
		return io.ErrClosedPipe
	}
	select {
	case <-c.resetCh:
		c.reset()
		return ErrGrblReset
	default:
	}

	select {
	case <-c.closeCh:
		return io.ErrClosedPipe
	case <-c.resetCh:
		c.reset()
		return ErrGrblReset
	case err := <-c.ackCh:
		c.rx.ack()
		return err
	}
}

// reset drops pending lines and any responses queued before the reset.
func (c *Conn) reset() {
	c.rx.reset()
	for {
		select {
		case <-c.ackCh:
		default:
			return
		}
	}
}

// awaitLine blocks until line id has been acknowledged and returns the
// first error seen on the way.
func (c *Conn) awaitLine(id int64) (err error) {
	for c.rx.acked < id {
		e := c.awaitAck()
		if err == nil {
			err = e
		}
		if errors.Is(e, io.ErrClosedPipe) || errors.Is(e, ErrGrblReset) {
			return err
		}
	}
	return err
}

// sendLine will block until line has been written to the serial device in full.
//
// It returns the line's sequence number.
func (c *Conn) sendLine(line []byte) (id int64, err error) {
	if len(line) > rxBufferSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrLineTooLong, len(line))
	}
	for !c.rx.fits(len(line)) {
		if err := c.awaitAck(); err != nil {
			return 0, err
		}
	}
	c.mx.Lock()
	_, err = c.rw.Write(line)
	c.mx.Unlock()
	if err != nil {
		return 0, err
	}
	return c.rx.push(len(line)), nil
}

// ReadFrom returns after all lines have been sent and executed.
//
// Comments are stripped before sending and lines without code are skipped;
// n still counts every byte read from r.
func (c *Conn) ReadFrom(r io.Reader) (n int64, err error) {
	c.wMx.Lock()
	defer c.wMx.Unlock()
	if c.isClosed() {
		return 0, io.ErrClosedPipe
	}

	br := bufio.NewReader(r)
	last := c.rx.sent
	for {
		raw, rerr := br.ReadString('\n')
		n += int64(len(raw))
		if code := (gcode.Line{Raw: raw}).Code(); code != "" {
			last, err = c.sendLine([]byte(code + "\n"))
			if err != nil {
				return n, err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return n, rerr
		}
	}

	return n, c.awaitLine(last)
}

// Write will return after all lines have been sent and executed.
func (c *Conn) Write(p []byte) (int, error) {
	n, err := c.ReadFrom(bytes.NewReader(p))
	return int(n), err
}

// WriteByte will write directly to the serial device without
// accounting for buffering.
//
// Use for realtime commands like `?`.
func (c *Conn) WriteByte(p byte) (err error) {
	if c.isClosed() {
		return io.ErrClosedPipe
	}
	c.mx.Lock()
	_, err = c.rw.Write([]byte{p})
	c.mx.Unlock()
	return err
}

// dispatch routes a response line to a waiting writer.
func (c *Conn) dispatch(line []byte) error {
	var ack error
	switch {
	case bytes.Equal(line, []byte("ok")):
	case bytes.HasPrefix(line, []byte("error:")):
		ack = parseError(string(line))
	case bytes.HasPrefix(line, []byte("Grbl ")):
		select {
		case c.resetCh <- struct{}{}:
		default:
		}
		return nil
	default:
		return nil
	}

	select {
	case c.ackCh <- ack:
		return nil
	case <-c.closeCh:
		return io.ErrClosedPipe
	}
}

// Read will read the next line from the device.
func (c *Conn) Read(p []byte) (n int, err error) {
	if c.isClosed() {
		return 0, io.ErrClosedPipe
	}

	if c.readBuf != nil {
		if len(p) < len(c.readBuf) {
			return 0, io.ErrShortBuffer
		}
		n = copy(p, c.readBuf)
		c.readBuf = nil
		return n, nil
	}
	if !c.scan.Scan() {
		if err := c.scan.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	data := bytes.TrimSpace(c.scan.Bytes())

	if err := c.dispatch(data); err != nil {
		return 0, err
	}

	if len(p) < len(data) {
		c.readBuf = append([]byte(nil), data...)
		return 0, io.ErrShortBuffer
	}

	return copy(p, data), nil
}
