package spjs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	parse := func(s string) interface{} {
		t.Helper()
		v, err := decodeMessage([]byte(s))
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, &DataFrame{Port: "COM1", Data: "ok\n"}, parse(`{"P":"COM1","D":"ok\n"}`))
	assert.Equal(t, &CmdStatus{Cmd: "Complete", ID: "cmd_1", Data: nil}, parse(`{"Cmd":"Complete","Id":"cmd_1"}`))
	assert.Equal(t, &CmdStatus{Cmd: "Queued", QueueCount: 2, Data: []string{"G0 X1\n"}}, parse(`{"Cmd":"Queued","QCnt":2,"D":["G0 X1\n"]}`))
	assert.Equal(t, &ErrorMessage{Error: "nope"}, parse(`{"Error":"nope"}`))
	assert.Equal(t, &versionMessage{Version: "1.96"}, parse(`{"Version":"1.96"}`))

	list := parse(`{"SerialPorts":[{"Name":"COM1","IsOpen":true,"Baud":115200}]}`).(*SerialPortList)
	require.Len(t, list.SerialPorts, 1)
	assert.Equal(t, "COM1", list.SerialPorts[0].Name)
	assert.True(t, list.SerialPorts[0].IsOpen)

	_, err := decodeMessage([]byte(`{"Commands":["list"]}`))
	assert.Error(t, err)
	_, err = decodeMessage([]byte(`{"D":5}`))
	assert.Error(t, err)
}

func TestSPJS_RoundTrip(t *testing.T) {
	received := make(chan string, 10)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ws, err := up.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			received <- string(data)
			if string(data) == "list" {
				ws.WriteMessage(websocket.TextMessage, []byte("list"))
				ws.WriteMessage(websocket.TextMessage, []byte(`{"Hostname":"bridge"}`))
				ws.WriteMessage(websocket.TextMessage, []byte(`{"SerialPorts":[{"Name":"COM1"}]}`))
			}
		}
	}))
	defer srv.Close()

	sp := NewSPJS("ws"+strings.TrimPrefix(srv.URL, "http"), nil)

	select {
	case msg := <-received:
		assert.Equal(t, "list", msg)
	case <-time.After(5 * time.Second):
		t.Fatal("no list request")
	}

	select {
	case msg := <-sp.Messages():
		list, ok := msg.(*SerialPortList)
		require.True(t, ok, "got %T", msg)
		assert.Equal(t, "COM1", list.SerialPorts[0].Name)
	case <-time.After(5 * time.Second):
		t.Fatal("no port list")
	}

	assert.Equal(t, "bridge", sp.Meta().Hostname)
	require.Len(t, sp.Ports(), 1)

	require.NoError(t, sp.SendJSON(JSON{Port: "COM1", Data: []Data{{Data: "G0 X1\n", ID: "a"}}}))
	select {
	case msg := <-received:
		assert.Equal(t, `sendjson {"P":"COM1","Data":[{"D":"G0 X1\n","Id":"a"}]}`, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("no sendjson")
	}

	require.NoError(t, sp.Close())
	assert.ErrorIs(t, sp.WriteString("list"), ErrClosed)
}
