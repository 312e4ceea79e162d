package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-watch/pkg/events"
	"github.com/StrathCole/oracle-watch/pkg/logging"
)

type received struct {
	Type  string      `json:"type"`
	Kind  events.Kind `json:"kind"`
	ID    string      `json:"id"`
	Error string      `json:"error"`
}

func dialFeed(t *testing.T, ws *WebSocketServer) *websocket.Conn {
	t.Helper()
	srv := newTestServer(t, NewReadModel(), ws)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return ws.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// roundTrip sends msg followed by a ping and waits for the pong, so msg has been applied.
func roundTrip(t *testing.T, conn *websocket.Conn, msg WebSocketMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: "ping"}))
	assert.Equal(t, "pong", readMsg(t, conn).Type)
}

func TestFeedBroadcastsEnvelopes(t *testing.T) {
	ws := NewWebSocketServer(nil, logging.NewNoopLogger())
	conn := dialFeed(t, ws)

	ws.Broadcast(events.Liveness{Height: 9, TendermintAddress: "terravalcons1x", Missed: 2})

	msg := readMsg(t, conn)
	assert.Equal(t, events.KindLiveness, msg.Kind)
	assert.NotEmpty(t, msg.ID)
}

func TestFeedKindFilter(t *testing.T) {
	ws := NewWebSocketServer(nil, logging.NewNoopLogger())
	conn := dialFeed(t, ws)

	roundTrip(t, conn, WebSocketMessage{Type: "subscribe", Kinds: []string{"price_average"}})

	ws.Broadcast(events.Liveness{Height: 9})
	ws.Broadcast(average(10, "uusd", "1.0"))

	assert.Equal(t, events.KindPriceAverage, readMsg(t, conn).Kind)
}

func TestFeedUnsubscribeFromAll(t *testing.T) {
	ws := NewWebSocketServer(nil, logging.NewNoopLogger())
	conn := dialFeed(t, ws)

	roundTrip(t, conn, WebSocketMessage{Type: "unsubscribe", Kinds: []string{"liveness"}})

	ws.Broadcast(events.Liveness{Height: 9})
	ws.Broadcast(events.PriceAbstain{Height: 10, OperatorAddress: "terravaloper1a", Denoms: []string{"ukrw"}})

	assert.Equal(t, events.KindPriceAbstain, readMsg(t, conn).Kind)
}

func TestFeedRejectsUnknownKind(t *testing.T) {
	ws := NewWebSocketServer(nil, logging.NewNoopLogger())
	conn := dialFeed(t, ws)

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: "subscribe", Kinds: []string{"bogus"}}))

	msg := readMsg(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Error, "bogus")
}

func TestFeedInvalidMessage(t *testing.T) {
	ws := NewWebSocketServer(nil, logging.NewNoopLogger())
	conn := dialFeed(t, ws)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, "error", readMsg(t, conn).Type)
}

func TestFeedRunClosesClients(t *testing.T) {
	ws := NewWebSocketServer(nil, logging.NewNoopLogger())
	conn := dialFeed(t, ws)

	in := make(chan events.Event, 1)
	in <- events.Stop{}
	close(in)
	require.NoError(t, ws.Run(context.Background(), in))

	assert.Equal(t, events.KindStop, readMsg(t, conn).Kind)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived))
	assert.Equal(t, 0, ws.ClientCount())
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://dash.example"})
	req := func(origin string) bool {
		return check(requestWithOrigin(origin))
	}
	assert.True(t, req(""))
	assert.True(t, req("https://dash.example"))
	assert.False(t, req("https://evil.example"))

	r := requestWithOrigin("https://evil.example")
	assert.True(t, originChecker([]string{"*"})(r))
	assert.True(t, originChecker(nil)(r))
}

func requestWithOrigin(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/v1/events/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}
