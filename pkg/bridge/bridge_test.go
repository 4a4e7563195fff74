package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/race/pkg/effect"
	"github.com/sage-x-project/race/pkg/event"
	"github.com/sage-x-project/race/pkg/gamecontext"
	"github.com/sage-x-project/race/pkg/random"
	"github.com/sage-x-project/race/pkg/types"
)

// fakeHandler lets tests script the Effect-out each call returns,
// capturing the Effect-in it was given for assertions.
type fakeHandler struct {
	lastEffectIn *effect.Effect
	out          *effect.Effect
	err          error
}

func (f *fakeHandler) InitState(_ context.Context, in *effect.Effect, _ []byte) (*effect.Effect, error) {
	f.lastEffectIn = in
	return f.out, f.err
}

func (f *fakeHandler) HandleEvent(_ context.Context, in *effect.Effect, _ []byte) (*effect.Effect, error) {
	f.lastEffectIn = in
	return f.out, f.err
}

func (f *fakeHandler) Close(context.Context) error { return nil }

func TestInitStateAppliesStartGameAndHandlerState(t *testing.T) {
	gctx := gamecontext.New(1)
	fh := &fakeHandler{out: &effect.Effect{
		StartGame:       true,
		HandlerState:    []byte{1, 2, 3},
		HasHandlerState: true,
		ValidPlayers:    []types.Address{"alice"},
	}}
	b := New(fh)

	out, err := b.InitState(context.Background(), gctx, []byte("init-data"))
	require.NoError(t, err)
	assert.True(t, out.StartGame)
	assert.True(t, gctx.Running)
	assert.Equal(t, []byte{1, 2, 3}, gctx.HandlerState)
	assert.True(t, fh.lastEffectIn.IsInit)
}

func TestHandleEventAppliesAssignsAndSettles(t *testing.T) {
	gctx := gamecontext.New(1)
	id := gctx.InitRandomState([]string{"a", "b"}, []types.Address{"server-1"})
	rs, err := gctx.RandomState(id)
	require.NoError(t, err)
	require.NoError(t, rs.Mask("server-1", [][]byte{[]byte("a"), []byte("b")}))
	require.NoError(t, rs.Lock("server-1", []random.Lock{{Digest: []byte("d1")}, {Digest: []byte("d2")}}))

	fh := &fakeHandler{out: &effect.Effect{
		Assigns: []effect.Assign{{RandomId: id, Index: 0, Player: "alice"}},
		Settles: []types.Settle{{Op: types.SettleAdd, Player: "alice", Amount: 10}},
	}}
	b := New(fh)

	_, err = b.HandleEvent(context.Background(), gctx, event.Ready{})
	require.NoError(t, err)
	assert.Len(t, gctx.PendingSettles, 1)
	assert.EqualValues(t, 1, gctx.Versions.SettleVersion)

	rs, err = gctx.RandomState(id)
	require.NoError(t, err)
	assert.Equal(t, random.StatusWaitingSecrets, rs.Status)
	assert.Contains(t, rs.Shares, random.ShareKey{From: "server-1", To: "alice", Index: 0})
}

func TestApplyEffectSurfacesHandleError(t *testing.T) {
	gctx := gamecontext.New(1)
	fh := &fakeHandler{out: &effect.Effect{Error: &effect.HandleError{Kind: "BadMove", Message: "nope"}}}
	b := New(fh)

	_, err := b.HandleEvent(context.Background(), gctx, event.Ready{})
	require.Error(t, err)
}

func TestHandleEventAppliesAwardsAndDeposits(t *testing.T) {
	gctx := gamecontext.New(1)
	gctx.PendingDeposits["alice"] = 50
	gctx.PendingDeposits["bob"] = 20

	fh := &fakeHandler{out: &effect.Effect{
		Awards:         []effect.Award{{Player: "carol", Amount: 5}},
		AcceptDeposits: []types.Address{"alice"},
		RejectDeposits: []types.Address{"bob"},
	}}
	b := New(fh)

	_, err := b.HandleEvent(context.Background(), gctx, event.Ready{})
	require.NoError(t, err)

	assert.NotContains(t, gctx.PendingDeposits, types.Address("alice"))
	assert.NotContains(t, gctx.PendingDeposits, types.Address("bob"))
	assert.ElementsMatch(t, []types.Settle{
		{Op: types.SettleAdd, Player: "carol", Amount: 5},
		{Op: types.SettleAdd, Player: "alice", Amount: 50},
	}, gctx.PendingSettles)
	assert.EqualValues(t, 1, gctx.Versions.SettleVersion)
}

func TestHandleEventQueuesTransfersSubGamesAndBridgeEvents(t *testing.T) {
	gctx := gamecontext.New(1)
	fh := &fakeHandler{out: &effect.Effect{
		Transfers:      []effect.Transfer{{To: "treasury", Amount: 100}},
		LaunchSubGames: []effect.LaunchSubGame{{Id: 7, InitData: []byte("sub")}},
		BridgeEvents:   []effect.BridgeEvent{{Raw: []byte("event")}},
	}}
	b := New(fh)

	_, err := b.HandleEvent(context.Background(), gctx, event.Ready{})
	require.NoError(t, err)

	require.Len(t, gctx.PendingTransfers, 1)
	assert.Equal(t, types.Address("treasury"), gctx.PendingTransfers[0].To)
	require.Len(t, gctx.PendingSubGameLaunches, 1)
	assert.EqualValues(t, 7, gctx.PendingSubGameLaunches[0].Id)
	require.Len(t, gctx.PendingBridgeEvents, 1)
	assert.Equal(t, []byte("event"), gctx.PendingBridgeEvents[0].Raw)
}

func TestApplyAndTakeSettlesMutatesBalancesAndEjects(t *testing.T) {
	gctx := gamecontext.New(1)
	require.NoError(t, gctx.AddPlayer(types.Player{Node: types.Node{Addr: "alice"}, Position: 0, Balance: 100}))
	require.NoError(t, gctx.AddPlayer(types.Player{Node: types.Node{Addr: "bob"}, Position: 1, Balance: 50}))

	fh := &fakeHandler{out: &effect.Effect{Settles: []types.Settle{
		{Op: types.SettleAdd, Player: "alice", Amount: 10},
		{Op: types.SettleSub, Player: "alice", Amount: 5},
		{Op: types.SettleEject, Player: "bob"},
	}}}
	b := New(fh)

	_, err := b.HandleEvent(context.Background(), gctx, event.Ready{})
	require.NoError(t, err)
	require.Len(t, gctx.PendingSettles, 3)

	applied := gctx.ApplyAndTakeSettles()
	assert.Len(t, applied, 3)
	assert.Empty(t, gctx.PendingSettles)
	require.Len(t, gctx.Players, 1)
	assert.Equal(t, types.Address("alice"), gctx.Players[0].Addr)
	assert.EqualValues(t, 105, gctx.Players[0].Balance)

	assert.Nil(t, gctx.ApplyAndTakeSettles())
}

func TestIsCheckpointRotatesRandomAndDecisionStates(t *testing.T) {
	gctx := gamecontext.New(1)
	gctx.InitRandomState([]string{"a"}, []types.Address{"server-1"})
	gctx.InitDecisionState("alice")

	fh := &fakeHandler{out: &effect.Effect{IsCheckpoint: true}}
	b := New(fh)

	_, err := b.HandleEvent(context.Background(), gctx, event.Ready{})
	require.NoError(t, err)
	assert.Empty(t, gctx.RandomStates)
	assert.Empty(t, gctx.DecisionStates)
}
