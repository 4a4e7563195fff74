package checkpoint

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDataComputesSha(t *testing.T) {
	vd := &VersionedData{Id: 1, Version: 1}
	vd.SetData([]byte("handler-state-bytes"))

	sum := sha256.Sum256([]byte("handler-state-bytes"))
	assert.Equal(t, hexEncode(sum[:]), vd.Sha)
}

func TestMerkleRootAndProofsVerify(t *testing.T) {
	cp := New()
	for i, payload := range []string{"sub-game-1", "sub-game-2", "sub-game-3"} {
		vd := &VersionedData{Id: i + 1, Version: 1}
		vd.SetData([]byte(payload))
		cp.Data[i+1] = vd
	}
	cp.UpdateRootAndProofs()
	require.NotEmpty(t, cp.Root)

	for id, vd := range cp.Data {
		proof, ok := cp.Proofs[id]
		require.True(t, ok)
		assert.True(t, VerifyProof(cp.Root, id, vd.Data, proof), "proof for id %d should verify", id)
	}
}

func TestMerkleProofFailsForTamperedData(t *testing.T) {
	cp := New()
	for i, payload := range []string{"a", "b"} {
		vd := &VersionedData{Id: i + 1, Version: 1}
		vd.SetData([]byte(payload))
		cp.Data[i+1] = vd
	}
	cp.UpdateRootAndProofs()

	proof := cp.Proofs[1]
	assert.False(t, VerifyProof(cp.Root, 1, []byte("tampered"), proof))
}

func TestMerkleSingleEntry(t *testing.T) {
	cp := New()
	vd := &VersionedData{Id: 1, Version: 1}
	vd.SetData([]byte("only-one"))
	cp.Data[1] = vd
	cp.UpdateRootAndProofs()

	assert.True(t, VerifyProof(cp.Root, 1, vd.Data, cp.Proofs[1]))
}

func TestApplyCheckpointRejectsSettleVersionMismatch(t *testing.T) {
	cp := New()
	err := cp.ApplyCheckpoint(5, 10, 11)
	require.Error(t, err)
}

func TestApplyCheckpointAcceptsMatchingSettleVersion(t *testing.T) {
	cp := New()
	require.NoError(t, cp.ApplyCheckpoint(5, 10, 10))
	assert.EqualValues(t, 5, cp.AccessVersion)
}

func TestOffChainRoundTrip(t *testing.T) {
	cp := New()
	for i, payload := range []string{"sub-game-1", "sub-game-2"} {
		vd := &VersionedData{Id: i + 1, Version: 3}
		vd.SetData([]byte(payload))
		cp.Data[i+1] = vd
	}
	cp.UpdateRootAndProofs()

	raw, err := cp.EncodeOffChain()
	require.NoError(t, err)

	data, proofs, err := DecodeOffChain(raw)
	require.NoError(t, err)
	require.Len(t, data, 2)
	assert.Equal(t, cp.Data[1].Data, data[1].Data)
	assert.Equal(t, cp.Data[1].Sha, data[1].Sha)
	assert.Equal(t, cp.Proofs[2], proofs[2])
}
