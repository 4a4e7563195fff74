package wsconn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/race/pkg/broadcast"
	"github.com/sage-x-project/race/pkg/transport"
)

var upgrader = websocket.Upgrader{}

// newTestPeer starts a server that acks one attach with account, then
// pushes one frame and one state envelope for gameAddr.
func newTestPeer(t *testing.T, gameAddr, account string, frame broadcast.Frame, state transport.ConnState) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var env envelope
		require.NoError(t, conn.ReadJSON(&env))
		require.Equal(t, kindAttach, env.Kind)

		require.NoError(t, conn.WriteJSON(envelope{Kind: kindAttachAck, GameAddr: gameAddr, Payload: []byte(account)}))

		require.NoError(t, conn.ReadJSON(&env)) // subscribe
		require.Equal(t, kindSubscribe, env.Kind)

		raw, err := broadcast.Marshal(frame)
		require.NoError(t, err)
		require.NoError(t, conn.WriteJSON(envelope{Kind: kindFrame, GameAddr: gameAddr, Payload: raw}))
		require.NoError(t, conn.WriteJSON(envelope{Kind: kindState, GameAddr: gameAddr, State: uint8(state)}))

		time.Sleep(100 * time.Millisecond)
	}))
}

func TestAttachAndSubscribeRoundTrip(t *testing.T) {
	wantFrame := broadcast.Message{Sender: "alice", Content: "hi"}
	server := newTestPeer(t, "game-1", "snapshot", wantFrame, transport.Reconnected)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	c := New(wsURL)
	defer c.Disconnect(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	account, err := c.AttachGame(ctx, "game-1", transport.AttachGameParams{PlayerAddr: "alice"})
	require.NoError(t, err)
	require.Equal(t, []byte("snapshot"), account)

	stream, err := c.Subscribe(ctx, "game-1", transport.SubscribeEventParams{SettleVersion: 0})
	require.NoError(t, err)

	item := <-stream
	require.False(t, item.IsState())
	require.Equal(t, wantFrame, item.Frame)

	item = <-stream
	require.True(t, item.IsState())
	require.Equal(t, transport.Reconnected, item.State)
}
