package grbl

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGrbl answers every received line with "ok", or an error for lines
// containing BAD.
type fakeGrbl struct {
	io.Reader
	io.Writer

	lines chan string
}

func newFakeGrbl(t *testing.T) *fakeGrbl {
	hostR, devW := io.Pipe()
	devR, hostW := io.Pipe()
	f := &fakeGrbl{Reader: hostR, Writer: hostW, lines: make(chan string, 100)}
	go func() {
		s := bufio.NewScanner(devR)
		for s.Scan() {
			line := s.Text()
			if line == "?" {
				continue
			}
			f.lines <- line
			if strings.Contains(line, "BAD") {
				io.WriteString(devW, "error:20\r\n")
				continue
			}
			io.WriteString(devW, "ok\r\n")
		}
	}()
	t.Cleanup(func() {
		hostW.Close()
		devW.Close()
	})
	return f
}

func readAll(c *Conn) {
	buf := make([]byte, 256)
	for {
		_, err := c.Read(buf)
		if err != nil && err != io.ErrShortBuffer {
			return
		}
	}
}

func TestConn_Write(t *testing.T) {
	dev := newFakeGrbl(t)
	c := NewConn(dev)
	go readAll(c)

	done := make(chan error, 1)
	go func() {
		_, err := c.Write([]byte("G0 X1\n(only a comment)\n\nG1 X2 (inline)\nM5"))
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("write did not complete")
	}
	close(dev.lines)
	var got []string
	for l := range dev.lines {
		got = append(got, l)
	}
	assert.Equal(t, []string{"G0 X1", "G1 X2", "M5"}, got)
}

func TestConn_Error(t *testing.T) {
	dev := newFakeGrbl(t)
	c := NewConn(dev)
	go readAll(c)

	_, err := c.Write([]byte("G0 X1\nBAD\nG0 X2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error:20")
	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 20, gerr.Code)

	_, err = c.Write([]byte(strings.Repeat("G0 X1 ", 30) + "\n"))
	assert.ErrorIs(t, err, ErrLineTooLong)

	n, err := c.Write([]byte("(nothing)\n"))
	assert.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestParseError(t *testing.T) {
	e := parseError("error:22")
	assert.Equal(t, 22, e.Code)
	assert.Equal(t, "error:22 feed rate has not yet been set or is undefined", e.Error())

	e = parseError("error:99")
	assert.Equal(t, "error:99", e.Error())

	e = parseError("error: Bad number format")
	assert.Equal(t, 0, e.Code)
	assert.Equal(t, "grbl error: Bad number format", e.Error())
}

func TestRxBuffer(t *testing.T) {
	var b rxBuffer
	assert.True(t, b.fits(rxBufferSize))
	assert.False(t, b.fits(rxBufferSize+1))

	assert.EqualValues(t, 1, b.push(100))
	assert.EqualValues(t, 2, b.push(20))
	assert.True(t, b.fits(8))
	assert.False(t, b.fits(9))

	b.ack()
	assert.Equal(t, 20, b.used)
	assert.EqualValues(t, 1, b.acked)

	b.push(5)
	b.reset()
	assert.Equal(t, 0, b.used)
	assert.EqualValues(t, b.sent, b.acked)

	// spurious acks are ignored
	b.ack()
	assert.EqualValues(t, 3, b.acked)
}

func TestConn_Closed(t *testing.T) {
	dev := newFakeGrbl(t)
	c := NewConn(dev)
	require.NoError(t, c.Close())

	_, err := c.Write([]byte("G0 X1\n"))
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
	assert.ErrorIs(t, c.WriteByte('?'), io.ErrClosedPipe)
}

func TestConn_ReadWithoutWriter(t *testing.T) {
	c := NewConn(struct {
		io.Reader
		io.Writer
	}{strings.NewReader("ok\nerror:2\n<Idle|MPos:0.000,0.000,0.000>\nGrbl 1.1f ['$' for help]\n"), io.Discard})

	done := make(chan []string, 1)
	go func() {
		var lines []string
		buf := make([]byte, 64)
		for {
			n, err := c.Read(buf)
			if err != nil {
				done <- lines
				return
			}
			lines = append(lines, string(buf[:n]))
		}
	}()

	select {
	case lines := <-done:
		assert.Equal(t, []string{"ok", "error:2", "<Idle|MPos:0.000,0.000,0.000>", "Grbl 1.1f ['$' for help]"}, lines)
	case <-time.After(5 * time.Second):
		t.Fatal("read blocked on unclaimed responses")
	}

	// the reset discards the responses queued before it
	c.wMx.Lock()
	assert.ErrorIs(t, c.awaitAck(), ErrGrblReset)
	assert.Len(t, c.ackCh, 0)
	c.wMx.Unlock()
}
