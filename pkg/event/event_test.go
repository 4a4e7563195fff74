package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/race/pkg/types"
)

func roundTrip(t *testing.T, ev GameEvent) GameEvent {
	t.Helper()
	data, err := Marshal(ev)
	require.NoError(t, err)
	out, err := Unmarshal(data)
	require.NoError(t, err)
	return out
}

func TestCustomRoundTrip(t *testing.T) {
	ev := Custom{Sender: "alice", Raw: []byte("hello")}
	out := roundTrip(t, ev)
	assert.Equal(t, ev, out)
}

func TestShareSecretsRoundTrip(t *testing.T) {
	ev := ShareSecrets{
		Sender: "server-1",
		Shares: []Share{
			{Target: ShareTargetRandom, Id: 1, Index: 0, To: "alice", Secret: []byte{1, 2, 3}},
			{Target: ShareTargetDecision, Id: 2, Index: 0, To: "bob", Secret: []byte{4, 5}},
		},
	}
	out := roundTrip(t, ev)
	assert.Equal(t, ev, out)
}

func TestMaskAndLockRoundTrip(t *testing.T) {
	mask := Mask{Sender: "server-1", RandomId: 7, Ciphertexts: [][]byte{{1}, {2}, {3}}}
	out := roundTrip(t, mask)
	assert.Equal(t, mask, out)

	lock := Lock{
		Sender:   "server-2",
		RandomId: 7,
		CiphertextsAndDigests: []CiphertextAndDigest{
			{Ciphertext: []byte{9}, Digest: []byte{10}},
		},
	}
	out2 := roundTrip(t, lock)
	assert.Equal(t, lock, out2)
}

func TestJoinRoundTrip(t *testing.T) {
	ev := Join{Players: []types.Player{
		{Node: types.Node{Addr: "alice"}, Position: 0, Balance: 100},
		{Node: types.Node{Addr: "bob"}, Position: 1, Balance: 200},
	}}
	out := roundTrip(t, ev)
	assert.Equal(t, ev, out)
}

func TestAnswerDecisionRoundTrip(t *testing.T) {
	ev := AnswerDecision{Sender: "alice", DecisionId: 3, Ciphertext: []byte{1, 2}, Digest: []byte{3, 4}}
	out := roundTrip(t, ev)
	assert.Equal(t, ev, out)
}

func TestDrawRandomItemsRoundTrip(t *testing.T) {
	ev := DrawRandomItems{Sender: "alice", RandomId: 9, Indexes: []int{0, 2, 4}}
	out := roundTrip(t, ev)
	assert.Equal(t, ev, out)
}

func TestZeroFieldVariantsRoundTrip(t *testing.T) {
	for _, ev := range []GameEvent{
		Ready{}, WaitingTimeout{}, DrawTimeout{}, Shutdown{}, Init{}, CheckpointReady{}, EndOfHistory{},
	} {
		out := roundTrip(t, ev)
		assert.Equal(t, ev, out)
	}
}

func TestUnmarshalUnknownDiscriminant(t *testing.T) {
	_, err := Unmarshal([]byte{200})
	require.Error(t, err)
}
