package wsclient

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// echoSubscribeServer answers every SUBSCRIBE request with one data frame
// per requested stream.
func echoSubscribeServer(t *testing.T, requests chan<- SubscribeRequest) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var req SubscribeRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			requests <- req
			if req.Method != "SUBSCRIBE" {
				continue
			}
			for _, s := range req.Params {
				frame := `{"stream":"` + s + `","data":{"p":"1.5"}}`
				if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_SubscribeAndReceive(t *testing.T) {
	requests := make(chan SubscribeRequest, 4)
	srv := echoSubscribeServer(t, requests)

	c := New(wsURL(srv), zap.NewNop())
	require.NoError(t, c.Connect())
	defer c.Close()
	assert.True(t, c.IsConnected())

	require.NoError(t, c.Subscribe([]string{"btcusdt@trade"}, 7))

	select {
	case req := <-requests:
		assert.Equal(t, SubscribeRequest{Method: "SUBSCRIBE", Params: []string{"btcusdt@trade"}, ID: 7}, req)
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw the subscribe request")
	}

	select {
	case msg := <-c.Messages():
		assert.JSONEq(t, `{"stream":"btcusdt@trade","data":{"p":"1.5"}}`, string(msg))
	case <-time.After(5 * time.Second):
		t.Fatal("no frame received")
	}
}

func TestClient_ConnectFailure(t *testing.T) {
	c := New("ws://127.0.0.1:1/nothing", nil)
	assert.Error(t, c.Connect())
	assert.False(t, c.IsConnected())
}

func TestClient_SubscribeWhileDisconnectedIsQueued(t *testing.T) {
	c := New("ws://127.0.0.1:1/nothing", nil)
	require.NoError(t, c.Subscribe([]string{"a", "b"}, 1))
	assert.ElementsMatch(t, []string{"a", "b"}, c.snapshotSubs())

	require.NoError(t, c.Unsubscribe([]string{"a"}, 2))
	assert.Equal(t, []string{"b"}, c.snapshotSubs())
}

func TestClient_CloseEndsMessages(t *testing.T) {
	srv := echoSubscribeServer(t, make(chan SubscribeRequest, 4))

	c := New(wsURL(srv), nil, WithReconnectBackoff(10*time.Millisecond, 50*time.Millisecond))
	require.NoError(t, c.Connect())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case _, ok := <-c.Messages():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("messages channel not closed")
	}
}
