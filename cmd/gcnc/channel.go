package main

import (
	"errors"
	"strings"
	"sync"

	"github.com/mastercactapus/alevel/autolevel"
	"github.com/mastercactapus/alevel/machine"
	"go.uber.org/zap"
)

var errQueueFull = errors.New("command queue full")

type job struct {
	text string
	done chan error
}

// channel sends commands to the machine in order and keeps the programs
// known to the server.
type channel struct {
	m   *machine.Machine
	ev  *events
	log *zap.Logger

	queue chan job

	mx          sync.Mutex
	source      string
	sourceText  string
	leveled     string
	leveledText string
}

var _ autolevel.Channel = &channel{}

func newChannel(m *machine.Machine, ev *events, log *zap.Logger) *channel {
	c := &channel{
		m:     m,
		ev:    ev,
		log:   log,
		queue: make(chan job, 1000),
	}
	go c.loop()
	return c
}

func (c *channel) loop() {
	for j := range c.queue {
		err := c.m.Send(j.text)
		if err != nil {
			c.log.Error("send to machine", zap.Error(err))
		}
		if j.done != nil {
			j.done <- err
		}
	}
}

// SendGcode queues text without waiting for it to run. Operator messages
// are also published as events.
func (c *channel) SendGcode(text string) error {
	if strings.HasPrefix(text, "(AL:") {
		c.ev.message(text)
	}
	select {
	case c.queue <- job{text: text}:
		return nil
	default:
		return errQueueFull
	}
}

// Run queues text and waits until the machine has executed it.
func (c *channel) Run(text string) error {
	done := make(chan error, 1)
	c.queue <- job{text: text, done: done}
	return <-done
}

// LoadProgram keeps a leveled program so it can be fetched or run.
func (c *channel) LoadProgram(name, text string) error {
	c.mx.Lock()
	c.leveled, c.leveledText = name, text
	c.mx.Unlock()
	c.log.Info("leveled program ready", zap.String("name", name), zap.Int("bytes", len(text)))
	c.ev.message("program loaded: " + name)
	return nil
}

func (c *channel) setSource(name, text string) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.source, c.sourceText = name, text
	c.leveled, c.leveledText = "", ""
}

func (c *channel) clear() { c.setSource("", "") }

// programs returns the source and leveled program names.
func (c *channel) programs() (source, leveled string) {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.source, c.leveled
}

// runnable returns the leveled program if there is one, otherwise the
// source program.
func (c *channel) runnable() (name, text string) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.leveled != "" {
		return c.leveled, c.leveledText
	}
	return c.source, c.sourceText
}

func (c *channel) leveledProgram() (name, text string) {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.leveled, c.leveledText
}
