// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package client is the crypto-peer acting on this node's behalf inside
// the randomization and decision protocols: contributing mask/lock
// re-encryptions, producing the shares owed once the handler assigns or
// reveals an index, decrypting the shares owed back, and answering or
// releasing a decision this node owns. It is the sole caller of
// pkg/secret and pkg/encryptor, following the pattern of one
// type owning all private-key-adjacent state.
package client

import (
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/sage-x-project/race/internal/metrics"
	"github.com/sage-x-project/race/pkg/decision"
	"github.com/sage-x-project/race/pkg/decryptioncache"
	"github.com/sage-x-project/race/pkg/encryptor"
	"github.com/sage-x-project/race/pkg/event"
	"github.com/sage-x-project/race/pkg/random"
	"github.com/sage-x-project/race/pkg/secret"
	"github.com/sage-x-project/race/pkg/types"
)

// maskSecretIndex is the transient key pkg/secret.Store holds the
// deck-wide mask secret under between ContributeMask and ContributeLock.
const maskSecretIndex = -1

// zero16 is the fixed plaintext commitment block for digest IVs.
var zero16 = make([]byte, 16)

// Client is this node's crypto peer. The zero value is not usable;
// construct with New.
type Client struct {
	self types.Address
	enc  *encryptor.Encryptor
	secs *secret.Store
	dc   *decryptioncache.Cache

	mu              sync.Mutex
	decisionSecrets map[uint32][]byte
}

// New returns a Client for self, driving enc for key operations, secs
// for this node's own randomization secrets, and dc for decrypted
// random-item values.
func New(self types.Address, enc *encryptor.Encryptor, secs *secret.Store, dc *decryptioncache.Cache) *Client {
	return &Client{
		self:            self,
		enc:             enc,
		secs:            secs,
		dc:              dc,
		decisionSecrets: make(map[uint32][]byte),
	}
}

func randomSecret() ([]byte, error) {
	s := make([]byte, 32)
	if _, err := rand.Read(s); err != nil {
		return nil, fmt.Errorf("client: generate secret: %w", err)
	}
	return s, nil
}

// ContributeMask generates this node's deck-wide mask secret, applies it
// to every ciphertext with ChaCha20, and records the secret for later
// combination with the lock secret ContributeLock will generate.
func (c *Client) ContributeMask(rs *random.State) ([][]byte, error) {
	maskSecret, err := randomSecret()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(rs.Ciphertexts))
	for i, ct := range rs.Ciphertexts {
		enc, err := encryptor.EncryptChacha20(maskSecret, ct.Ciphertext)
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	c.secs.Put(rs.Id, maskSecretIndex, maskSecret)
	return out, nil
}

// ContributeLock generates one lock secret per index, AES-CTR re-
// encrypts each ciphertext and computes its commitment digest, then
// combines the index's lock secret with the deck-wide mask secret
// ContributeMask stashed. The protocol expects exactly one revealed
// secret per owner per index (pkg/random.State.expectShares keys
// ShareKey only by owner and index, not by mask/lock phase), so the
// combined 64-byte blob — mask secret then lock secret — is what this
// node will later share and what DecryptRandom splits back apart.
func (c *Client) ContributeLock(rs *random.State) ([]random.Lock, [][]byte, error) {
	maskSecret, ok := c.secs.Get(rs.Id, maskSecretIndex)
	if !ok {
		return nil, nil, fmt.Errorf("client: no mask secret recorded for random %d", rs.Id)
	}

	locks := make([]random.Lock, len(rs.Ciphertexts))
	cts := make([][]byte, len(rs.Ciphertexts))
	for i, ct := range rs.Ciphertexts {
		lockSecret, err := randomSecret()
		if err != nil {
			return nil, nil, err
		}
		newCt, err := encryptor.EncryptAes(lockSecret, ct.Ciphertext, encryptor.ContentIV())
		if err != nil {
			return nil, nil, err
		}
		digest, err := encryptor.EncryptAes(lockSecret, zero16, encryptor.DigestIV())
		if err != nil {
			return nil, nil, err
		}
		cts[i] = newCt
		locks[i] = random.Lock{Owner: c.self, Digest: digest}

		combined := append(append([]byte(nil), maskSecret...), lockSecret...)
		c.secs.Put(rs.Id, i, combined)
	}
	return locks, cts, nil
}

// ShareRandomSecrets returns this node's share for index, RSA-encrypted
// to to unless to is empty (a public reveal, sent in the clear).
func (c *Client) ShareRandomSecrets(rs *random.State, index int, to types.Address) (event.Share, error) {
	combined, ok := c.secs.Get(rs.Id, index)
	if !ok {
		return event.Share{}, fmt.Errorf("client: no secret recorded for random %d index %d", rs.Id, index)
	}
	payload := combined
	if to != "" {
		var err error
		payload, err = c.enc.EncryptRsa(to, combined)
		if err != nil {
			return event.Share{}, err
		}
	}
	return event.Share{Target: event.ShareTargetRandom, Id: rs.Id, Index: index, To: to, Secret: payload}, nil
}

// ReceiveRandomShare decrypts share (if addressed to self) and records
// it on rs.
func (c *Client) ReceiveRandomShare(rs *random.State, from types.Address, share event.Share) error {
	plain := share.Secret
	if share.To == c.self {
		var err error
		plain, err = c.enc.DecryptRsa(share.Secret)
		if err != nil {
			return err
		}
	}
	return rs.AddSecret(from, share.To, share.Index, plain)
}

// DecryptRandom decrypts every index whose owned shares (as returned by
// rs.OwnedShares) are complete, caching the results and returning them.
func (c *Client) DecryptRandom(rs *random.State) (map[int]string, error) {
	owned := rs.OwnedShares(c.self)
	out := make(map[int]string, len(owned))
	for idx, byOwner := range owned {
		plain := rs.Ciphertexts[idx].Ciphertext
		for _, combined := range byOwner {
			if len(combined) != 64 {
				return nil, fmt.Errorf("client: malformed combined secret for random %d index %d", rs.Id, idx)
			}
			maskSecret, lockSecret := combined[:32], combined[32:]
			var err error
			plain, err = encryptor.DecryptAes(lockSecret, plain, encryptor.ContentIV())
			if err != nil {
				return nil, err
			}
			plain, err = encryptor.DecryptChacha20(maskSecret, plain)
			if err != nil {
				return nil, err
			}
		}
		out[idx] = string(plain)
	}
	c.dc.Insert(rs.Id, out)
	metrics.SecretsCached.Add(float64(len(out)))
	return out, nil
}

// ContributeDecisionAnswer encrypts value under a fresh secret this node
// records for later release, returning the answer's ciphertext and
// commitment digest.
func (c *Client) ContributeDecisionAnswer(decisionId uint32, value string) (ciphertext, digest []byte, err error) {
	sec, err := randomSecret()
	if err != nil {
		return nil, nil, err
	}
	ciphertext, err = encryptor.EncryptAes(sec, []byte(value), encryptor.ContentIV())
	if err != nil {
		return nil, nil, err
	}
	digest, err = encryptor.EncryptAes(sec, zero16, encryptor.DigestIV())
	if err != nil {
		return nil, nil, err
	}
	c.mu.Lock()
	c.decisionSecrets[decisionId] = sec
	c.mu.Unlock()
	return ciphertext, digest, nil
}

// ShareDecisionSecret returns the public reveal of decisionId's answer
// secret, recorded by an earlier ContributeDecisionAnswer.
func (c *Client) ShareDecisionSecret(decisionId uint32) (event.Share, error) {
	c.mu.Lock()
	sec, ok := c.decisionSecrets[decisionId]
	c.mu.Unlock()
	if !ok {
		return event.Share{}, fmt.Errorf("client: no secret recorded for decision %d", decisionId)
	}
	return event.Share{Target: event.ShareTargetDecision, Id: decisionId, Secret: sec}, nil
}

// ReceiveDecisionShare records owner's reveal secret on ds.
func (c *Client) ReceiveDecisionShare(ds *decision.State, owner types.Address, share event.Share) error {
	return ds.AddSecret(owner, share.Secret)
}

// DecryptDecision decrypts ds's answer with its released secret.
func DecryptDecision(ds *decision.State) (string, error) {
	if ds.Answer == nil || ds.Secret == nil {
		return "", fmt.Errorf("client: decision %d not released", ds.Id)
	}
	plain, err := encryptor.DecryptAes(ds.Secret, ds.Answer.Ciphertext, encryptor.ContentIV())
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
