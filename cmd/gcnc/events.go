package main

import (
	"encoding/json"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/mastercactapus/alevel/coord"
	"github.com/mastercactapus/alevel/machine"
	"go.uber.org/zap"
)

const (
	stateEvents   = "/events/state"
	messageEvents = "/events/messages"
)

type events struct {
	srv *sse.Server
	log *zap.Logger
}

func newEvents(log *zap.Logger) *events {
	return &events{
		srv: sse.NewServer(&sse.Options{
			Logger: zap.NewStdLog(log.Named("sse")),
		}),
		log: log,
	}
}

type stateEvent struct {
	Status string
	MPos   coord.Point
	WPos   coord.Point
	WCO    coord.Point
}

func (e *events) state(st machine.State) {
	data, err := json.Marshal(stateEvent{
		Status: st.Status,
		MPos:   st.MPos,
		WPos:   st.WPos(),
		WCO:    st.WCO,
	})
	if err != nil {
		e.log.Error("marshal state", zap.Error(err))
		return
	}
	e.srv.SendMessage(stateEvents, sse.SimpleMessage(string(data)))
}

func (e *events) message(text string) {
	e.srv.SendMessage(messageEvents, sse.SimpleMessage(text))
}

func (e *events) Close() { e.srv.Shutdown() }
