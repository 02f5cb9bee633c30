// Package spjs is a client for serial-port-json-server, which exposes
// serial ports over a websocket.
package spjs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ReconnectDelay is the wait between connection attempts.
var ReconnectDelay = 3 * time.Second

// ErrClosed is returned by sends after Close.
var ErrClosed = errors.New("spjs client closed")

// SPJS keeps a websocket connection to the server open, reconnecting as
// needed. Decoded server messages are delivered on Messages.
type SPJS struct {
	url string
	log *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	outgoing chan request
	incoming chan interface{}

	mx    sync.RWMutex
	meta  Meta
	ports []SerialPort
}

type request struct {
	payload []byte
	done    chan error
}

// Meta describes the server.
type Meta struct {
	Hostname string
	Version  string
}

type DataFrame struct {
	Port string `json:"P"`
	Data string `json:"D"`
}
type CmdStatus struct {
	Cmd        string
	QueueCount int `json:"QCnt"`
	Type       []string
	Data       []string `json:"D"`
	ID         string   `json:"Id"`
}

type ErrorMessage struct {
	Error string
}
type SerialPortList struct {
	SerialPorts []SerialPort
}
type SerialPort struct {
	Name                      string
	Friendly                  string
	SerialNumber              string
	DeviceClass               string
	IsOpen                    bool
	IsPrimary                 bool
	RelatedNames              []string
	Baud                      int
	BufferAlgorithm           string
	AvailableBufferAlgorithms []string
	Ver                       float64
	USBVID                    string
	USBPID                    string
	FeedRateOverride          float64
}

type hostnameMessage struct{ Hostname string }
type versionMessage struct{ Version string }

// messageKinds maps the key that identifies a message to its type, in
// match order. A status carries "D" too, so "Cmd" is checked first.
var messageKinds = []struct {
	key string
	new func() interface{}
}{
	{"Error", func() interface{} { return &ErrorMessage{} }},
	{"SerialPorts", func() interface{} { return &SerialPortList{} }},
	{"Cmd", func() interface{} { return &CmdStatus{} }},
	{"D", func() interface{} { return &DataFrame{} }},
	{"Hostname", func() interface{} { return &hostnameMessage{} }},
	{"Version", func() interface{} { return &versionMessage{} }},
}

func decodeMessage(data []byte) (interface{}, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, err
	}
	for _, k := range messageKinds {
		if _, ok := keys[k.key]; !ok {
			continue
		}
		v := k.new()
		if err := json.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("decode %s message: %w", k.key, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown message: %s", data)
}

func NewSPJS(url string, log *zap.Logger) *SPJS {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	sp := &SPJS{
		url:      url,
		log:      log.With(zap.String("url", url)),
		ctx:      ctx,
		cancel:   cancel,
		outgoing: make(chan request, 1000),
		incoming: make(chan interface{}, 1000),
	}

	go sp.loop()

	return sp
}

// Messages delivers DataFrame, CmdStatus, ErrorMessage and SerialPortList
// values as they arrive.
func (sp *SPJS) Messages() chan interface{} {
	return sp.incoming
}

// Meta returns what the server has reported about itself.
func (sp *SPJS) Meta() Meta {
	sp.mx.RLock()
	defer sp.mx.RUnlock()
	return sp.meta
}

// Ports returns the last port list received.
func (sp *SPJS) Ports() []SerialPort {
	sp.mx.RLock()
	defer sp.mx.RUnlock()
	return append([]SerialPort(nil), sp.ports...)
}

// Close stops reconnecting and drops the connection.
func (sp *SPJS) Close() error {
	sp.cancel()
	return nil
}

func (sp *SPJS) handle(v interface{}) {
	sp.mx.Lock()
	switch msg := v.(type) {
	case *hostnameMessage:
		sp.meta.Hostname = msg.Hostname
		sp.mx.Unlock()
		return
	case *versionMessage:
		sp.meta.Version = msg.Version
		sp.mx.Unlock()
		return
	case *SerialPortList:
		sp.ports = append(sp.ports[:0], msg.SerialPorts...)
	}
	sp.mx.Unlock()

	select {
	case sp.incoming <- v:
	case <-sp.ctx.Done():
	}
}

func (sp *SPJS) readLoop(ws *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if sp.ctx.Err() == nil {
				sp.log.Warn("read", zap.Error(err))
			}
			return
		}
		if !bytes.HasPrefix(data, []byte("{")) {
			// echo of a command we sent
			continue
		}
		v, err := decodeMessage(data)
		if err != nil {
			sp.log.Debug("parse message", zap.Error(err))
			continue
		}
		sp.handle(v)
	}
}

func (sp *SPJS) loop() {
	var pending *request

	for {
		sp.log.Info("connecting")
		ws, _, err := websocket.DefaultDialer.DialContext(sp.ctx, sp.url, nil)
		if err != nil {
			if sp.ctx.Err() != nil {
				sp.fail(pending)
				return
			}
			sp.log.Warn("connect", zap.Error(err))
			select {
			case <-time.After(ReconnectDelay):
				continue
			case <-sp.ctx.Done():
				sp.fail(pending)
				return
			}
		}
		sp.log.Info("connected")
		readDone := make(chan struct{})
		go sp.readLoop(ws, readDone)

		// refresh the port list on every connect
		err = ws.WriteMessage(websocket.TextMessage, []byte("list"))

		for err == nil {
			if pending != nil {
				err = ws.WriteMessage(websocket.TextMessage, pending.payload)
				if err != nil {
					break
				}
				pending.done <- nil
				pending = nil
			}

			select {
			case <-readDone:
				err = errors.New("connection lost")
			case <-sp.ctx.Done():
				ws.Close()
				<-readDone
				sp.fail(pending)
				return
			case req := <-sp.outgoing:
				pending = &req
			}
		}
		sp.log.Warn("send", zap.Error(err))
		ws.Close()
		<-readDone
	}
}

// fail rejects the pending request and anything still queued.
func (sp *SPJS) fail(pending *request) {
	if pending != nil {
		pending.done <- ErrClosed
	}
	for {
		select {
		case req := <-sp.outgoing:
			req.done <- ErrClosed
		default:
			return
		}
	}
}

func (sp *SPJS) send(payload []byte) error {
	if sp.ctx.Err() != nil {
		return ErrClosed
	}
	req := request{payload: payload, done: make(chan error, 1)}
	select {
	case sp.outgoing <- req:
	case <-sp.ctx.Done():
		return ErrClosed
	}
	select {
	case err := <-req.done:
		return err
	case <-sp.ctx.Done():
		return ErrClosed
	}
}

type JSON struct {
	Port string `json:"P"`
	Data []Data
}
type Data struct {
	Data string `json:"D"`
	ID   string `json:"Id"`
}

// SendJSON queues lines for a port with the sendjson command and returns
// once they were written to the server.
func (sp *SPJS) SendJSON(v JSON) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sendjson: %w", err)
	}
	return sp.send(append([]byte("sendjson "), data...))
}

// WriteString sends a raw server command such as "list".
func (sp *SPJS) WriteString(data string) error {
	return sp.send([]byte(data))
}
