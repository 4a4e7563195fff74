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

// Package random implements the mental-poker randomization state
// machine: commutative mask, per-index lock, and selective
// reveal/assign followed by secret-share custody. The small, explicitly
// tagged state structs and owner-ordered progression mirror a key
// rotation's generation bookkeeping: an ordered, multi-step lifecycle
// with one designated owner per step.
package random

import (
	"time"

	"github.com/sage-x-project/race/internal/metrics"
	"github.com/sage-x-project/race/internal/raceerr"
	"github.com/sage-x-project/race/pkg/types"
)

// observeOperation records stage as a success/failure RandomOperations
// count plus its RandomOperationDuration, from a timer started at the
// top of the calling stage.
func observeOperation(stage string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.RandomOperations.WithLabelValues(stage, status).Inc()
	metrics.RandomOperationDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Status is the RandomState lifecycle.
type Status int

const (
	StatusMasking Status = iota
	StatusLocking
	StatusWaitingSecrets
	StatusReady
	StatusShared
)

// MaskStatus is the per-owner mask progress.
type MaskStatus int

const (
	MaskRequired MaskStatus = iota
	MaskApplied
	MaskRemoved
)

// Mask is one owner's mask slot.
type Mask struct {
	Owner  types.Address
	Status MaskStatus
}

// OwnershipKind classifies who may see a ciphertext's plaintext.
type OwnershipKind int

const (
	OwnershipUnclaimed OwnershipKind = iota
	OwnershipAssigned
	OwnershipMultiAssigned
	OwnershipRevealed
)

// Ownership is the ownership tag of one LockedCiphertext.
type Ownership struct {
	Kind  OwnershipKind
	Addrs []types.Address // len 1 for Assigned, >1 for MultiAssigned
}

// Lock is one owner's per-index commitment: a re-encryption plus a
// digest binding that ciphertext for later dispute resolution.
type Lock struct {
	Owner  types.Address
	Digest []byte
}

// LockedCiphertext is one slot of the randomized deck.
type LockedCiphertext struct {
	Ciphertext []byte
	Locks      []Lock
	Ownership  Ownership
}

// ShareKey identifies one expected secret share.
type ShareKey struct {
	From  types.Address
	To    types.Address // zero value ("") means a public reveal
	Index int
}

// State is one RandomState instance.
type State struct {
	Id          uint32
	Size        int
	Owners      []types.Address // join order at init time; the tie-break for masker/locker rotation
	Status      Status
	Masks       []Mask // one per owner, same order as Owners
	Ciphertexts []LockedCiphertext
	Options     []string
	Shares      map[ShareKey][]byte // nil value = not yet filled
	Revealed    map[int]string
}

// New creates a RandomState over options with the given owners (server
// join order). Initial status is masking(owners[0]).
func New(id uint32, options []string, owners []types.Address) *State {
	masks := make([]Mask, len(owners))
	cts := make([]LockedCiphertext, len(options))
	for i := range cts {
		cts[i] = LockedCiphertext{Ciphertext: []byte(options[i])}
	}
	for i, o := range owners {
		masks[i] = Mask{Owner: o, Status: MaskRequired}
	}
	return &State{
		Id:          id,
		Size:        len(options),
		Owners:      append([]types.Address(nil), owners...),
		Status:      StatusMasking,
		Masks:       masks,
		Ciphertexts: cts,
		Options:     append([]string(nil), options...),
		Shares:      make(map[ShareKey][]byte),
		Revealed:    make(map[int]string),
	}
}

func (s *State) maskOf(addr types.Address) *Mask {
	for i := range s.Masks {
		if s.Masks[i].Owner == addr {
			return &s.Masks[i]
		}
	}
	return nil
}

func (s *State) nextOwnerWithMaskStatus(status MaskStatus) (types.Address, bool) {
	for _, m := range s.Masks {
		if m.Status == status {
			return m.Owner, true
		}
	}
	return "", false
}

func (s *State) currentMasker() (types.Address, bool) {
	if s.Status != StatusMasking {
		return "", false
	}
	return s.nextOwnerWithMaskStatus(MaskRequired)
}

func (s *State) currentLocker() (types.Address, bool) {
	if s.Status != StatusLocking {
		return "", false
	}
	return s.nextOwnerWithMaskStatus(MaskApplied)
}

// Mask applies addr's commutative re-encryption of every ciphertext. addr
// must be the current masker, its mask must still be required, and the
// ciphertext count must match the deck size.
func (s *State) Mask(addr types.Address, ciphertexts [][]byte) (err error) {
	start := time.Now()
	defer func() { observeOperation("mask", start, err) }()

	m := s.maskOf(addr)
	if m == nil {
		return raceerr.New(raceerr.KindInvalidOperator, string(addr), nil)
	}
	if m.Status != MaskRequired {
		return raceerr.New(raceerr.KindDuplicateOperation, string(addr), nil)
	}
	expected, ok := s.currentMasker()
	if !ok || addr != expected {
		return raceerr.New(raceerr.KindInvalidOperator, string(addr), nil)
	}
	if len(ciphertexts) != s.Size {
		return raceerr.New(raceerr.KindInvalidCiphertexts, string(addr), nil)
	}

	for i := range s.Ciphertexts {
		s.Ciphertexts[i].Ciphertext = ciphertexts[i]
	}
	m.Status = MaskApplied

	if _, ok := s.nextOwnerWithMaskStatus(MaskRequired); !ok {
		s.Status = StatusLocking
	}
	return nil
}

// Lock applies addr's per-index re-encryption and digest commitment.
func (s *State) Lock(addr types.Address, pairs []Lock) (err error) {
	start := time.Now()
	defer func() { observeOperation("lock", start, err) }()

	m := s.maskOf(addr)
	if m == nil {
		return raceerr.New(raceerr.KindInvalidOperator, string(addr), nil)
	}
	if m.Status == MaskRemoved {
		return raceerr.New(raceerr.KindDuplicateOperation, string(addr), nil)
	}
	if m.Status != MaskApplied {
		return raceerr.New(raceerr.KindInvalidOperator, string(addr), nil)
	}
	expected, ok := s.currentLocker()
	if !ok || addr != expected {
		return raceerr.New(raceerr.KindInvalidOperator, string(addr), nil)
	}
	if len(pairs) != s.Size {
		return raceerr.New(raceerr.KindInvalidCiphertexts, string(addr), nil)
	}

	for i := range s.Ciphertexts {
		s.Ciphertexts[i].Locks = append(s.Ciphertexts[i].Locks, Lock{Owner: addr, Digest: pairs[i].Digest})
	}
	m.Status = MaskRemoved

	if _, ok := s.nextOwnerWithMaskStatus(MaskApplied); !ok {
		s.Status = StatusReady
	}
	return nil
}

// IsFullyLocked reports whether every owner's mask has reached removed,
// i.e. status is ready or beyond.
func (s *State) IsFullyLocked() bool {
	for _, m := range s.Masks {
		if m.Status != MaskRemoved {
			return false
		}
	}
	return true
}

func (s *State) expectShares(index int) {
	for _, m := range s.Masks {
		key := ShareKey{From: m.Owner, To: "", Index: index}
		if _, ok := s.Shares[key]; !ok {
			s.Shares[key] = nil
		}
	}
}

// Assign makes index visible to player, expecting one share per owner
// addressed to that player.
func (s *State) Assign(index int, player types.Address) (err error) {
	start := time.Now()
	defer func() { observeOperation("assign", start, err) }()

	if s.Status != StatusReady {
		return raceerr.New(raceerr.KindInvalidOperator, string(player), nil)
	}
	if index < 0 || index >= len(s.Ciphertexts) {
		return raceerr.New(raceerr.KindInvalidRandomId, "", nil)
	}
	ct := &s.Ciphertexts[index]
	switch ct.Ownership.Kind {
	case OwnershipUnclaimed:
		ct.Ownership = Ownership{Kind: OwnershipAssigned, Addrs: []types.Address{player}}
	case OwnershipAssigned, OwnershipMultiAssigned:
		ct.Ownership = Ownership{Kind: OwnershipMultiAssigned, Addrs: append(append([]types.Address(nil), ct.Ownership.Addrs...), player)}
	default:
		return raceerr.New(raceerr.KindDuplicateOperation, string(player), nil)
	}
	for _, m := range s.Masks {
		key := ShareKey{From: m.Owner, To: player, Index: index}
		if _, ok := s.Shares[key]; !ok {
			s.Shares[key] = nil
		}
	}
	s.Status = StatusWaitingSecrets
	return nil
}

// Reveal makes each listed index publicly visible, expecting one share
// per owner with no addressee.
func (s *State) Reveal(indexes []int) (err error) {
	start := time.Now()
	defer func() { observeOperation("reveal", start, err) }()

	if s.Status != StatusReady {
		return raceerr.New(raceerr.KindInvalidOperator, "", nil)
	}
	for _, idx := range indexes {
		if idx < 0 || idx >= len(s.Ciphertexts) {
			return raceerr.New(raceerr.KindInvalidRandomId, "", nil)
		}
		s.Ciphertexts[idx].Ownership = Ownership{Kind: OwnershipRevealed}
		s.expectShares(idx)
	}
	s.Status = StatusWaitingSecrets
	return nil
}

// AddSecret fills one expected share. Once every expected share has a
// secret the state advances to shared, then immediately back to ready.
func (s *State) AddSecret(from, to types.Address, index int, secret []byte) (err error) {
	start := time.Now()
	defer func() { observeOperation("share", start, err) }()

	key := ShareKey{From: from, To: to, Index: index}
	if _, expected := s.Shares[key]; !expected {
		return raceerr.New(raceerr.KindInvalidOperator, string(from), nil)
	}
	s.Shares[key] = secret

	for _, v := range s.Shares {
		if v == nil {
			return nil
		}
	}
	s.Status = StatusShared
	s.Status = StatusReady
	return nil
}

// PendingAddrs returns the set of addresses the base client should
// dispatch an OperationTimeout against: the remaining masker/locker for
// masking/locking status, or the from-addresses still missing a secret
// while waiting-secrets.
func (s *State) PendingAddrs() []types.Address {
	switch s.Status {
	case StatusMasking:
		if a, ok := s.currentMasker(); ok {
			return []types.Address{a}
		}
	case StatusLocking:
		if a, ok := s.currentLocker(); ok {
			return []types.Address{a}
		}
	case StatusWaitingSecrets:
		seen := make(map[types.Address]struct{})
		var out []types.Address
		for k, v := range s.Shares {
			if v == nil {
				if _, ok := seen[k.From]; !ok {
					seen[k.From] = struct{}{}
					out = append(out, k.From)
				}
			}
		}
		return out
	}
	return nil
}

// OwnedShares returns the secrets addressed to self (or publicly
// revealed, i.e. To == "") across all indexes, keyed by index then by
// the contributing owner's address, used by pkg/client to build a
// decryption map.
func (s *State) OwnedShares(self types.Address) map[int]map[types.Address][]byte {
	out := make(map[int]map[types.Address][]byte)
	for k, v := range s.Shares {
		if v == nil || (k.To != self && k.To != "") {
			continue
		}
		if out[k.Index] == nil {
			out[k.Index] = make(map[types.Address][]byte)
		}
		out[k.Index][k.From] = v
	}
	return out
}
