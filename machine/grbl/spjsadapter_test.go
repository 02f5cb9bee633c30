package grbl

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mastercactapus/alevel/coord"
	"github.com/mastercactapus/alevel/spjs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSPJSAdapter(t *testing.T) {
	received := make(chan string, 100)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ws, err := up.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		send := func(s string) { ws.WriteMessage(websocket.TextMessage, []byte(s)) }
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			msg := string(data)
			received <- msg
			switch {
			case msg == "list":
				send(`{"SerialPorts":[{"Name":"COM1","IsOpen":false}]}`)
			case strings.HasPrefix(msg, "open "):
				send(`{"P":"COM1","D":"<Idle|MPos:1.000,2.000,3.000|WCO:1.000,1.000,1.000>"}`)
				send(`{"P":"COM1","D":"[PRB:1.0"}`)
				send(`{"P":"COM1","D":"00,2.000,-1.000:1]\n"}`)
			case strings.HasPrefix(msg, "sendjson "):
				var j spjs.JSON
				json.Unmarshal([]byte(strings.TrimPrefix(msg, "sendjson ")), &j)
				send(`{"Cmd":"Complete","Id":"` + j.Data[len(j.Data)-1].ID + `","P":"COM1"}`)
			}
		}
	}))
	defer srv.Close()

	sp := spjs.NewSPJS("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	a := NewSPJSAdapter(sp, "COM1", 0, nil)

	var feedback []byte
	timeout := time.After(5 * time.Second)
	for !strings.Contains(string(feedback), "]") {
		select {
		case b := <-a.Feedback():
			feedback = append(feedback, b...)
		case <-timeout:
			t.Fatal("no feedback")
		}
	}
	var s ProbeStream
	s.Write(feedback)
	res, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, coord.Point{X: 1, Y: 2, Z: -1}, res.Point)

	assert.Equal(t, "Idle", a.CurrentState().Status)
	assert.Equal(t, coord.Point{X: 0, Y: 1, Z: 2}, a.CurrentState().WPos())

	done := make(chan error, 1)
	go func() {
		_, err := a.Write([]byte("G0 X1\n\nG0 X2\n"))
		done <- err
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("write not completed")
	}

	var open bool
	for len(received) > 0 {
		if msg := <-received; msg == "open COM1 115200 grbl" {
			open = true
		}
	}
	assert.True(t, open, "adapter opens the port")
}
