package grbl

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/mastercactapus/alevel/machine"
	"go.uber.org/zap"
)

// StatusInterval is how often the serial adapter polls for status.
const StatusInterval = 500 * time.Millisecond

type SerialAdapter struct {
	*Conn

	log *zap.Logger

	mx       sync.Mutex
	last     machine.State
	state    chan machine.State
	feedback chan []byte
	done     chan struct{}
	stop     sync.Once
}

var _ machine.Adapter = &SerialAdapter{}

func NewSerialAdapter(rw io.ReadWriter, log *zap.Logger) *SerialAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	adapter := &SerialAdapter{
		Conn: NewConn(rw),
		log:  log,

		state:    make(chan machine.State),
		feedback: make(chan []byte, 256),
		done:     make(chan struct{}),
	}
	go adapter.pollLoop()
	go adapter.readLoop()

	return adapter
}

// Close stops polling and closes the connection.
func (adapter *SerialAdapter) Close() error {
	adapter.stop.Do(func() { close(adapter.done) })
	return adapter.Conn.Close()
}

func (adapter *SerialAdapter) pollLoop() {
	t := time.NewTicker(StatusInterval)
	defer t.Stop()
	for {
		select {
		case <-adapter.done:
			return
		case <-t.C:
			err := adapter.WriteByte('?')
			if err != nil {
				adapter.log.Warn("status poll failed", zap.Error(err))
			}
		}
	}
}

func (adapter *SerialAdapter) readLoop() {
	buf := make([]byte, 1024)
	for {
		n, err := adapter.Read(buf)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			adapter.log.Info("serial connection closed", zap.Error(err))
			close(adapter.feedback)
			return
		}
		if err != nil {
			adapter.log.Error("read from port", zap.Error(err))
			continue
		}
		adapter.handle(buf[:n])
	}
}

func (adapter *SerialAdapter) handle(data []byte) {
	if len(data) == 0 {
		return
	}
	if data[0] != '<' {
		line := make([]byte, len(data)+1)
		copy(line, data)
		line[len(data)] = '\n'
		adapter.feedback <- line
		return
	}

	stat, err := parseStatus(adapter.CurrentState(), string(data))
	if err != nil {
		adapter.log.Warn("parse status", zap.ByteString("data", data), zap.Error(err))
		return
	}
	adapter.mx.Lock()
	adapter.last = *stat
	adapter.mx.Unlock()
	select {
	case adapter.state <- *stat:
	default:
	}
}

func (adapter *SerialAdapter) State() chan machine.State { return adapter.state }
func (adapter *SerialAdapter) Feedback() chan []byte     { return adapter.feedback }
func (adapter *SerialAdapter) CurrentState() machine.State {
	adapter.mx.Lock()
	state := adapter.last
	adapter.mx.Unlock()
	return state
}
