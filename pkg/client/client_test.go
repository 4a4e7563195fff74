package client

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/race/pkg/decision"
	"github.com/sage-x-project/race/pkg/decryptioncache"
	"github.com/sage-x-project/race/pkg/encryptor"
	"github.com/sage-x-project/race/pkg/random"
	"github.com/sage-x-project/race/pkg/secret"
	"github.com/sage-x-project/race/pkg/types"
)

func newTestClient(t *testing.T, self types.Address) (*Client, *encryptor.Encryptor) {
	t.Helper()
	enc := encryptor.New(self, nil)
	require.NoError(t, enc.Generate())
	return New(self, enc, secret.NewStore(), decryptioncache.New()), enc
}

// registerPeers cross-registers each encryptor's public keys with the
// other so RSA-targeted shares can be exchanged.
func registerPeers(t *testing.T, a, b *encryptor.Encryptor, addrA, addrB types.Address) {
	t.Helper()
	rsaA, ecA, err := a.ExportPublicKey("")
	require.NoError(t, err)
	rsaB, ecB, err := b.ExportPublicKey("")
	require.NoError(t, err)

	pubA := decodePublicKeys(t, rsaA, ecA)
	pubB := decodePublicKeys(t, rsaB, ecB)
	a.AddPublicKey(addrB, pubB)
	b.AddPublicKey(addrA, pubA)
}

func decodePublicKeys(t *testing.T, rsaB64, ecB64 string) encryptor.PublicKeys {
	t.Helper()
	rsaBytes, err := base64.StdEncoding.DecodeString(rsaB64)
	require.NoError(t, err)
	ecBytes, err := base64.StdEncoding.DecodeString(ecB64)
	require.NoError(t, err)

	rsaAny, err := x509.ParsePKIXPublicKey(rsaBytes)
	require.NoError(t, err)
	ecAny, err := x509.ParsePKIXPublicKey(ecBytes)
	require.NoError(t, err)

	return encryptor.PublicKeys{
		RSA: rsaAny.(*rsa.PublicKey),
		EC:  ecAny.(*ecdsa.PublicKey),
	}
}

func TestSingleOwnerMaskLockShareDecryptRoundTrip(t *testing.T) {
	server := types.Address("server-1")
	player := types.Address("alice")

	serverClient, serverEnc := newTestClient(t, server)
	playerClient, playerEnc := newTestClient(t, player)
	registerPeers(t, serverEnc, playerEnc, server, player)

	rs := random.New(1, []string{"A", "B"}, []types.Address{server})

	masked, err := serverClient.ContributeMask(rs)
	require.NoError(t, err)
	require.NoError(t, rs.Mask(server, masked))

	locks, lockedCts, err := serverClient.ContributeLock(rs)
	require.NoError(t, err)
	require.NoError(t, rs.Lock(server, locks))
	for i := range rs.Ciphertexts {
		rs.Ciphertexts[i].Ciphertext = lockedCts[i]
	}
	require.True(t, rs.IsFullyLocked())

	require.NoError(t, rs.Assign(0, player))

	share, err := serverClient.ShareRandomSecrets(rs, 0, player)
	require.NoError(t, err)
	require.NoError(t, playerClient.ReceiveRandomShare(rs, server, share))

	values, err := playerClient.DecryptRandom(rs)
	require.NoError(t, err)
	require.Contains(t, values, 0)
	assert.Equal(t, "A", values[0])
}

func TestDecisionAnswerReleaseDecryptRoundTrip(t *testing.T) {
	owner := types.Address("server-1")
	c, _ := newTestClient(t, owner)

	ds := decision.Ask(7, owner)
	ciphertext, digest, err := c.ContributeDecisionAnswer(7, "fold")
	require.NoError(t, err)
	require.NoError(t, ds.AnswerDecision(owner, ciphertext, digest))
	require.NoError(t, ds.Release())

	share, err := c.ShareDecisionSecret(7)
	require.NoError(t, err)
	require.NoError(t, c.ReceiveDecisionShare(ds, owner, share))

	value, err := DecryptDecision(ds)
	require.NoError(t, err)
	assert.Equal(t, "fold", value)
}
