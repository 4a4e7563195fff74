package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/race/pkg/types"
)

func TestEffectRoundTripEmpty(t *testing.T) {
	eff := &Effect{}
	data, err := Marshal(eff)
	require.NoError(t, err)
	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, eff, out)
}

func TestEffectRoundTripFull(t *testing.T) {
	at := uint64(100)
	wt := uint64(200)
	lockKind := EntryClosed
	eff := &Effect{
		ActionTimeout:  &at,
		WaitTimeout:    &wt,
		StartGame:      true,
		StopGame:       false,
		CancelDispatch: true,
		Timestamp:      12345,
		CurrRandomId:   3,
		CurrDecisionId: 2,
		NodesCount:     4,
		Asks:           []Ask{{Owner: "alice"}},
		Assigns:        []Assign{{RandomId: 1, Index: 0, Player: "bob"}},
		Reveals:        []Reveal{{RandomId: 1, Indexes: []int{1, 2}}},
		Releases:       []Release{{DecisionId: 2}},
		InitRandomStates: []InitRandomSpec{
			{Options: []string{"a", "b"}, Owners: []types.Address{"server-1"}},
		},
		Revealed: []RevealedEntry{
			{RandomId: 1, Values: map[int]string{0: "ace", 1: "king"}},
		},
		Answered:        []AnsweredEntry{{DecisionId: 2, Value: "yes"}},
		IsCheckpoint:    true,
		Settles:         []types.Settle{{Op: types.SettleAdd, Player: "alice", Amount: 10}},
		HandlerState:    []byte{1, 2, 3},
		HasHandlerState: true,
		Error:           &HandleError{Kind: "InvalidState", Message: "bad"},
		Transfers:       []Transfer{{To: "alice", Amount: 5}},
		LaunchSubGames:  []LaunchSubGame{{Id: 1, InitData: []byte{9}}},
		BridgeEvents:    []BridgeEvent{{Raw: []byte{7}}},
		ValidPlayers:    []types.Address{"alice", "bob"},
		IsInit:          true,
		EntryLock:       &lockKind,
		Reset:           true,
		Logs:            []string{"hello"},
		Awards:          []Award{{Player: "alice", Amount: 99}},
		RejectDeposits:  []types.Address{"carol"},
		AcceptDeposits:  []types.Address{"dave"},
		CurrSubGameId:   7,
	}
	data, err := Marshal(eff)
	require.NoError(t, err)
	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, eff, out)
}

func TestEffectNilOptionalsRoundTripAsNil(t *testing.T) {
	eff := &Effect{}
	data, err := Marshal(eff)
	require.NoError(t, err)
	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Nil(t, out.ActionTimeout)
	assert.Nil(t, out.WaitTimeout)
	assert.Nil(t, out.Error)
	assert.Nil(t, out.EntryLock)
}
