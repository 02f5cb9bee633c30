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
	"sync/atomic"

	"github.com/mastercactapus/alevel/gcode"
	"github.com/mastercactapus/alevel/machine"
	"github.com/mastercactapus/alevel/spjs"
	"go.uber.org/zap"
)

// ErrQueueWiped is returned to writers whose commands were discarded by
// the server.
var ErrQueueWiped = errors.New("wiped queue")

var lastID int64

func nextID() string {
	id := atomic.AddInt64(&lastID, 1)
	return "cmd_" + strconv.FormatInt(id, 36)
}

// SPJSAdapter drives grbl through a serial-port-json-server.
type SPJSAdapter struct {
	sp   *spjs.SPJS
	port string
	baud int
	log  *zap.Logger

	cmds    chan adapterMessage
	waiting map[string]chan error

	mx       sync.Mutex
	last     machine.State
	state    chan machine.State
	feedback chan []byte
}

var _ machine.Adapter = &SPJSAdapter{}

type adapterMessage struct {
	spjs.JSON
	wait chan error
}

func NewSPJSAdapter(sp *spjs.SPJS, port string, baud int, log *zap.Logger) *SPJSAdapter {
	if log == nil {
		log = zap.NewNop()
	}
	if baud == 0 {
		baud = 115200
	}
	adapter := &SPJSAdapter{
		sp:       sp,
		port:     port,
		baud:     baud,
		log:      log.With(zap.String("port", port)),
		waiting:  make(map[string]chan error, 100),
		cmds:     make(chan adapterMessage, 1000),
		state:    make(chan machine.State),
		feedback: make(chan []byte, 256),
	}
	go adapter.loop()

	return adapter
}

func (adapter *SPJSAdapter) CurrentState() machine.State {
	adapter.mx.Lock()
	defer adapter.mx.Unlock()
	return adapter.last
}
func (adapter *SPJSAdapter) setMachineState(state machine.State) {
	adapter.mx.Lock()
	adapter.last = state
	adapter.mx.Unlock()
	select {
	case adapter.state <- state:
	default:
	}
}

func (adapter *SPJSAdapter) handleData(msg *spjs.DataFrame) {
	if msg.Port != "" && msg.Port != adapter.port {
		return
	}
	data := strings.TrimSpace(msg.Data)
	if data == "" {
		return
	}
	if data[0] != '<' {
		adapter.feedback <- []byte(msg.Data)
		return
	}
	stat, err := parseStatus(adapter.CurrentState(), data)
	if err != nil {
		adapter.log.Warn("parse status", zap.String("data", data), zap.Error(err))
		return
	}
	adapter.setMachineState(*stat)
}

// resolve completes the writers waiting on a command status.
func (adapter *SPJSAdapter) resolve(msg *spjs.CmdStatus) {
	switch msg.Cmd {
	case "WipedQueue":
		for id, ch := range adapter.waiting {
			ch <- ErrQueueWiped
			delete(adapter.waiting, id)
		}
	case "Complete":
		if ch, ok := adapter.waiting[msg.ID]; ok {
			ch <- nil
			delete(adapter.waiting, msg.ID)
		}
	}
}

// openPort asks the server to open our port if it is listed but closed.
func (adapter *SPJSAdapter) openPort(list *spjs.SerialPortList) {
	for _, port := range list.SerialPorts {
		if port.Name != adapter.port || port.IsOpen {
			continue
		}
		adapter.log.Info("opening port", zap.Int("baud", adapter.baud))
		cmd := fmt.Sprintf("open %s %d grbl", adapter.port, adapter.baud)
		if err := adapter.sp.WriteString(cmd); err != nil {
			adapter.log.Error("open port", zap.Error(err))
		}
	}
}

func (adapter *SPJSAdapter) submit(msg adapterMessage) {
	err := adapter.sp.SendJSON(msg.JSON)
	switch {
	case msg.wait == nil:
		if err != nil {
			adapter.log.Error("sendjson", zap.Error(err))
		}
	case err != nil:
		msg.wait <- err
	default:
		adapter.waiting[msg.Data[len(msg.Data)-1].ID] = msg.wait
	}
}

func (adapter *SPJSAdapter) loop() {
	for {
		select {
		case resp := <-adapter.sp.Messages():
			switch msg := resp.(type) {
			case *spjs.DataFrame:
				adapter.handleData(msg)
			case *spjs.CmdStatus:
				adapter.resolve(msg)
			case *spjs.SerialPortList:
				adapter.openPort(msg)
			case *spjs.ErrorMessage:
				adapter.log.Warn("server error", zap.String("error", msg.Error))
			}
		case msg := <-adapter.cmds:
			adapter.submit(msg)
		}
	}
}

func (adapter *SPJSAdapter) State() chan machine.State { return adapter.state }
func (adapter *SPJSAdapter) Feedback() chan []byte     { return adapter.feedback }

// batchSize is the number of lines per sendjson command.
const batchSize = 100

// nextBatch collects up to batchSize lines of code from scan. Comments and
// blank lines are dropped.
func (adapter *SPJSAdapter) nextBatch(scan *bufio.Scanner) (j spjs.JSON, n int64) {
	j.Port = adapter.port
	for len(j.Data) < batchSize && scan.Scan() {
		n += int64(len(scan.Bytes())) + 1
		code := (gcode.Line{Raw: scan.Text()}).Code()
		if code == "" {
			continue
		}
		j.Data = append(j.Data, spjs.Data{Data: code + "\n", ID: nextID()})
	}
	return j, n
}

// ReadFrom sends lines in batches and waits for the last batch to
// complete.
func (adapter *SPJSAdapter) ReadFrom(r io.Reader) (n int64, err error) {
	scan := bufio.NewScanner(r)
	var wait chan error
	for {
		j, read := adapter.nextBatch(scan)
		n += read
		if len(j.Data) == 0 {
			break
		}
		wait = make(chan error, 1)
		adapter.cmds <- adapterMessage{JSON: j, wait: wait}
	}
	if err := scan.Err(); err != nil {
		return n, err
	}
	if wait == nil {
		return n, nil
	}
	return n, <-wait
}

func (adapter *SPJSAdapter) WriteByte(b byte) error {
	_, err := adapter.Write([]byte{b, '\n'})
	return err
}
func (adapter *SPJSAdapter) Write(p []byte) (int, error) {
	n, err := adapter.ReadFrom(bytes.NewReader(p))
	if int(n) > len(p) {
		n = int64(len(p))
	}
	return int(n), err
}
