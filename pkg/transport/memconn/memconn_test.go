package memconn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/race/pkg/broadcast"
	"github.com/sage-x-project/race/pkg/event"
	"github.com/sage-x-project/race/pkg/transport"
	"github.com/sage-x-project/race/pkg/types"
)

func TestAttachGameReturnsConfiguredAccount(t *testing.T) {
	c := New([]byte("account-snapshot"))
	raw, err := c.AttachGame(context.Background(), "game-1", transport.AttachGameParams{PlayerAddr: "alice"})
	require.NoError(t, err)
	assert.Equal(t, []byte("account-snapshot"), raw)
}

func TestSubscribeDeliversPushedFramesInOrder(t *testing.T) {
	c := New(nil)
	_, err := c.AttachGame(context.Background(), "game-1", transport.AttachGameParams{})
	require.NoError(t, err)

	stream, err := c.Subscribe(context.Background(), "game-1", transport.SubscribeEventParams{SettleVersion: 0})
	require.NoError(t, err)

	c.Push("game-1", broadcast.Message{Sender: "alice", Content: "hi"})
	c.Push("game-1", broadcast.TxState{Kind: broadcast.TxSucceed})

	first := <-stream
	require.False(t, first.IsState())
	assert.Equal(t, broadcast.Message{Sender: "alice", Content: "hi"}, first.Frame)

	second := <-stream
	require.False(t, second.IsState())
	assert.Equal(t, broadcast.TxState{Kind: broadcast.TxSucceed}, second.Frame)
}

func TestSubmitEventRecordsWithoutMutatingStream(t *testing.T) {
	c := New(nil)
	_, err := c.AttachGame(context.Background(), "game-1", transport.AttachGameParams{})
	require.NoError(t, err)

	err = c.SubmitEvent(context.Background(), "game-1", event.Ready{})
	require.NoError(t, err)
	require.Len(t, c.SubmittedEvents, 1)
	assert.Equal(t, types.Address("game-1"), c.SubmittedEvents[0].GameAddr)
	assert.Equal(t, event.Ready{}, c.SubmittedEvents[0].Event)
}

func TestDisconnectDeliversClosedAndClosesStream(t *testing.T) {
	c := New(nil)
	stream, err := c.Subscribe(context.Background(), "game-1", transport.SubscribeEventParams{})
	require.Error(t, err)
	assert.Nil(t, stream)

	_, err = c.AttachGame(context.Background(), "game-1", transport.AttachGameParams{})
	require.NoError(t, err)
	stream, err = c.Subscribe(context.Background(), "game-1", transport.SubscribeEventParams{})
	require.NoError(t, err)

	require.NoError(t, c.Disconnect(context.Background()))

	item, ok := <-stream
	require.True(t, ok)
	assert.Equal(t, transport.Closed, item.State)

	_, ok = <-stream
	assert.False(t, ok)

	err = c.SubmitMessage(context.Background(), "game-1", "too late")
	assert.ErrorIs(t, err, transport.ErrNotConnected)
}

func TestExitGameClosesOnlyThatStream(t *testing.T) {
	c := New(nil)
	_, err := c.AttachGame(context.Background(), "game-1", transport.AttachGameParams{})
	require.NoError(t, err)

	require.NoError(t, c.ExitGame(context.Background(), "game-1"))
	_, err = c.Subscribe(context.Background(), "game-1", transport.SubscribeEventParams{})
	assert.ErrorIs(t, err, transport.ErrNotConnected)
}
