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

// Package checkpoint implements the versioned per-sub-game container:
// a Merkle root over {(id, sha(data))}, reconciled from an on-chain
// root/accessVersion and off-chain data/proofs. The Merkle construction
// fixes what updateRootAndProofs otherwise leaves unspecified: ascending
// sub-game id, leaves sha256(id_le_u32 || sha256(data)), binary tree
// with zero-padding.
package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"time"

	"github.com/sage-x-project/race/internal/metrics"
	"github.com/sage-x-project/race/internal/raceerr"
	"github.com/sage-x-project/race/pkg/codec"
)

// VersionedData is one sub-game's durable handler state.
type VersionedData struct {
	Id      int
	Version uint64
	Sha     string
	Data    []byte
}

// SetData stores data and recomputes Sha = sha256(data), keeping the
// testable invariant ("for every VersionedData, sha equals
// sha256(data) when set via setData").
func (v *VersionedData) SetData(data []byte) {
	v.Data = append([]byte(nil), data...)
	sum := sha256.Sum256(v.Data)
	v.Sha = hexEncode(sum[:])
}

func hexEncode(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0x0f]
	}
	return string(out)
}

// Checkpoint is the combined on-chain/off-chain container.
type Checkpoint struct {
	Root          []byte
	AccessVersion uint64
	Data          map[int]*VersionedData
	Proofs        map[int][]byte
}

// New returns an empty checkpoint at accessVersion 0.
func New() *Checkpoint {
	return &Checkpoint{
		Data:   make(map[int]*VersionedData),
		Proofs: make(map[int][]byte),
	}
}

// leaf computes the Merkle leaf hash for one sub-game entry:
// sha256(id as little-endian u32 || sha256(data)).
func leaf(id int, data []byte) [32]byte {
	var idBytes [4]byte
	binary.LittleEndian.PutUint32(idBytes[:], uint32(id))
	inner := sha256.Sum256(data)
	return sha256.Sum256(append(idBytes[:], inner[:]...))
}

// UpdateRootAndProofs recomputes Root and every entry's Merkle proof from
// Data, in ascending sub-game id order, as a binary tree with
// zero-padded leaves at the odd boundary.
func (c *Checkpoint) UpdateRootAndProofs() {
	ids := make([]int, 0, len(c.Data))
	for id := range c.Data {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	leaves := make([][32]byte, len(ids))
	for i, id := range ids {
		leaves[i] = leaf(id, c.Data[id].Data)
	}

	root, proofs := merkleRootAndProofs(leaves)
	c.Root = root[:]
	c.Proofs = make(map[int][]byte, len(ids))
	for i, id := range ids {
		c.Proofs[id] = flattenProof(proofs[i])
	}
}

// proofStep is one level of a Merkle proof: the sibling hash and
// whether the sibling sits to the left of the node being proved
// (so the verifier knows whether to hash cur||sib or sib||cur).
type proofStep struct {
	sibling     [32]byte
	siblingLeft bool
}

// merkleRootAndProofs builds a binary Merkle tree over leaves, padding
// an odd level with a zero sibling (not a duplicated leaf, so a forged
// entry cannot be balanced against itself), and returns the root plus,
// for every leaf, its sibling path from leaf to root.
func merkleRootAndProofs(leaves [][32]byte) ([32]byte, [][]proofStep) {
	if len(leaves) == 0 {
		return sha256.Sum256(nil), nil
	}
	level := leaves
	// indexOf[i] tracks, for final leaf i, its current index in `level`.
	indexOf := make([]int, len(leaves))
	for i := range indexOf {
		indexOf[i] = i
	}
	proofs := make([][]proofStep, len(leaves))

	for len(level) > 1 {
		var next [][32]byte
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			var right [32]byte
			hasRight := i+1 < len(level)
			if hasRight {
				right = level[i+1]
			}
			parent := sha256.Sum256(append(append([]byte(nil), left[:]...), right[:]...))
			next = append(next, parent)
		}

		for leafIdx, pos := range indexOf {
			sibPos := pos ^ 1
			var step proofStep
			if sibPos < len(level) {
				step = proofStep{sibling: level[sibPos], siblingLeft: sibPos < pos}
			} else {
				step = proofStep{sibling: [32]byte{}, siblingLeft: false}
			}
			proofs[leafIdx] = append(proofs[leafIdx], step)
			indexOf[leafIdx] = pos / 2
		}
		level = next
	}
	return level[0], proofs
}

// flattenProof serializes a sibling path as 33 bytes per level: one
// side byte (1 = sibling is the left operand) followed by the 32-byte
// sibling hash.
func flattenProof(path []proofStep) []byte {
	out := make([]byte, 0, 33*len(path))
	for _, p := range path {
		if p.siblingLeft {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
		out = append(out, p.sibling[:]...)
	}
	return out
}

// VerifyProof checks that leaf(id, data) combined with proof (33 bytes
// per level: side byte + sibling hash, leaf-to-root order) reconstructs
// root.
func VerifyProof(root []byte, id int, data []byte, proof []byte) bool {
	cur := leaf(id, data)
	for i := 0; i+33 <= len(proof); i += 33 {
		siblingLeft := proof[i] == 1
		var sib [32]byte
		copy(sib[:], proof[i+1:i+33])
		if siblingLeft {
			cur = sha256.Sum256(append(append([]byte(nil), sib[:]...), cur[:]...))
		} else {
			cur = sha256.Sum256(append(append([]byte(nil), cur[:]...), sib[:]...))
		}
	}
	valid := bytes.Equal(cur[:], root)
	status := "valid"
	if !valid {
		status = "invalid"
	}
	metrics.MerkleProofsVerified.WithLabelValues(status).Inc()
	return valid
}

// ApplyCheckpoint validates that sv matches the checkpoint's own notion
// of settle version (callers track settleVersion alongside
// accessVersion; this mirrors the protocol's documented boundary behavior) before
// swapping in new on-chain fields.
func (c *Checkpoint) ApplyCheckpoint(accessVersion, expectedSettleVersion, actualSettleVersion uint64) error {
	start := time.Now()
	status := "success"
	defer func() {
		metrics.CheckpointsApplied.WithLabelValues(status).Inc()
		metrics.CheckpointApplyDuration.Observe(time.Since(start).Seconds())
	}()

	if expectedSettleVersion != actualSettleVersion {
		status = "failure"
		return raceerr.New(raceerr.KindInvalidCheckpoint, "", nil)
	}
	c.AccessVersion = accessVersion
	return nil
}

// DataFor returns the serialized handler state for gameId, or nil if
// absent.
func (c *Checkpoint) DataFor(gameId int) []byte {
	vd, ok := c.Data[gameId]
	if !ok {
		return nil
	}
	return vd.Data
}

// EncodeOffChain serializes the off-chain half of a Checkpoint (the data
// map and the matching proof for each entry), in ascending sub-game id
// order, for transmission inside a Backlogs frame.
func (c *Checkpoint) EncodeOffChain() ([]byte, error) {
	ids := make([]int, 0, len(c.Data))
	for id := range c.Data {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	return codec.Marshal(offChainEncodable{c: c, ids: ids})
}

type offChainEncodable struct {
	c   *Checkpoint
	ids []int
}

func (o offChainEncodable) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteArrayLen(len(o.ids)); err != nil {
		return err
	}
	for _, id := range o.ids {
		vd := o.c.Data[id]
		if err := e.WriteU32(uint32(id)); err != nil {
			return err
		}
		if err := e.WriteU64(vd.Version); err != nil {
			return err
		}
		if err := e.WriteBytes(vd.Data); err != nil {
			return err
		}
		if err := e.WriteBytes(o.c.Proofs[id]); err != nil {
			return err
		}
	}
	return nil
}

// DecodeOffChain parses data produced by EncodeOffChain into a fresh
// Data/Proofs pair, recomputing each entry's Sha with SetData so the
// sha256(data) invariant holds regardless of what the wire carried.
func DecodeOffChain(data []byte) (map[int]*VersionedData, map[int][]byte, error) {
	d := codec.NewDecoder(data)
	n, err := d.ReadArrayLen()
	if err != nil {
		return nil, nil, err
	}
	entries := make(map[int]*VersionedData, n)
	proofs := make(map[int][]byte, n)
	for i := 0; i < n; i++ {
		id, err := d.ReadU32()
		if err != nil {
			return nil, nil, err
		}
		version, err := d.ReadU64()
		if err != nil {
			return nil, nil, err
		}
		raw, err := d.ReadBytes()
		if err != nil {
			return nil, nil, err
		}
		proof, err := d.ReadBytes()
		if err != nil {
			return nil, nil, err
		}
		vd := &VersionedData{Id: int(id), Version: version}
		vd.SetData(raw)
		entries[int(id)] = vd
		proofs[int(id)] = proof
	}
	return entries, proofs, nil
}
