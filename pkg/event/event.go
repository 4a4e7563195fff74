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

// Package event is the GameEvent tagged union: one concrete
// Go type per variant, dispatched through an exhaustive type switch
// rather than virtual methods (deliberately avoiding dynamic dispatch).
package event

import (
	"fmt"

	"github.com/sage-x-project/race/pkg/codec"
	"github.com/sage-x-project/race/pkg/types"
)

// Kind is the wire discriminant, in wire declaration order.
type Kind uint8

const (
	KindCustom Kind = iota
	KindReady
	KindShareSecrets
	KindOperationTimeout
	KindMask
	KindLock
	KindRandomnessReady
	KindJoin
	KindServerLeave
	KindLeave
	KindGameStart
	KindWaitingTimeout
	KindDrawRandomItems
	KindDrawTimeout
	KindActionTimeout
	KindAnswerDecision
	KindSecretsReady
	KindShutdown
	KindBridge
	KindInit
	KindCheckpointReady
	KindEndOfHistory
)

// GameEvent is implemented by every concrete variant below.
type GameEvent interface {
	codec.Encodable
	Kind() Kind
}

// ShareTarget distinguishes a share destined for a RandomState index from
// one destined for a DecisionState.
type ShareTarget uint8

const (
	ShareTargetRandom ShareTarget = iota
	ShareTargetDecision
)

// Share is one entry of a ShareSecrets event.
type Share struct {
	Target ShareTarget
	Id     uint32 // randomId or decisionId depending on Target
	Index  int    // meaningful only for ShareTargetRandom
	To     types.Address
	Secret []byte
}

func (s *Share) encode(e *codec.Encoder) error {
	if err := e.WriteU8(uint8(s.Target)); err != nil {
		return err
	}
	if err := e.WriteU32(s.Id); err != nil {
		return err
	}
	if err := e.WriteU32(uint32(s.Index)); err != nil {
		return err
	}
	if err := e.WriteString(string(s.To)); err != nil {
		return err
	}
	return e.WriteBytes(s.Secret)
}

func decodeShare(d *codec.Decoder) (Share, error) {
	var s Share
	tgt, err := d.ReadU8()
	if err != nil {
		return s, err
	}
	s.Target = ShareTarget(tgt)
	if s.Id, err = d.ReadU32(); err != nil {
		return s, err
	}
	idx, err := d.ReadU32()
	if err != nil {
		return s, err
	}
	s.Index = int(idx)
	to, err := d.ReadString()
	if err != nil {
		return s, err
	}
	s.To = types.Address(to)
	if s.Secret, err = d.ReadBytes(); err != nil {
		return s, err
	}
	return s, nil
}

// --- Custom ---

type Custom struct {
	Sender types.Address
	Raw    []byte
}

func (Custom) Kind() Kind { return KindCustom }
func (c Custom) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindCustom)); err != nil {
		return err
	}
	if err := e.WriteString(string(c.Sender)); err != nil {
		return err
	}
	return e.WriteBytes(c.Raw)
}

// --- Ready ---

type Ready struct{}

func (Ready) Kind() Kind { return KindReady }
func (Ready) EncodeTo(e *codec.Encoder) error { return e.WriteDiscriminant(uint8(KindReady)) }

// --- ShareSecrets ---

type ShareSecrets struct {
	Sender types.Address
	Shares []Share
}

func (ShareSecrets) Kind() Kind { return KindShareSecrets }
func (s ShareSecrets) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindShareSecrets)); err != nil {
		return err
	}
	if err := e.WriteString(string(s.Sender)); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(s.Shares)); err != nil {
		return err
	}
	for i := range s.Shares {
		if err := s.Shares[i].encode(e); err != nil {
			return err
		}
	}
	return nil
}

// --- OperationTimeout ---

type OperationTimeout struct {
	Addrs []types.Address
}

func (OperationTimeout) Kind() Kind { return KindOperationTimeout }
func (o OperationTimeout) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindOperationTimeout)); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(o.Addrs)); err != nil {
		return err
	}
	for _, a := range o.Addrs {
		if err := e.WriteString(string(a)); err != nil {
			return err
		}
	}
	return nil
}

// --- Mask ---

type Mask struct {
	Sender      types.Address
	RandomId    uint32
	Ciphertexts [][]byte
}

func (Mask) Kind() Kind { return KindMask }
func (m Mask) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindMask)); err != nil {
		return err
	}
	if err := e.WriteString(string(m.Sender)); err != nil {
		return err
	}
	if err := e.WriteU32(m.RandomId); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(m.Ciphertexts)); err != nil {
		return err
	}
	for _, c := range m.Ciphertexts {
		if err := e.WriteBytes(c); err != nil {
			return err
		}
	}
	return nil
}

// --- Lock ---

type CiphertextAndDigest struct {
	Ciphertext []byte
	Digest     []byte
}

type Lock struct {
	Sender                types.Address
	RandomId              uint32
	CiphertextsAndDigests []CiphertextAndDigest
}

func (Lock) Kind() Kind { return KindLock }
func (l Lock) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindLock)); err != nil {
		return err
	}
	if err := e.WriteString(string(l.Sender)); err != nil {
		return err
	}
	if err := e.WriteU32(l.RandomId); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(l.CiphertextsAndDigests)); err != nil {
		return err
	}
	for _, cd := range l.CiphertextsAndDigests {
		if err := e.WriteBytes(cd.Ciphertext); err != nil {
			return err
		}
		if err := e.WriteBytes(cd.Digest); err != nil {
			return err
		}
	}
	return nil
}

// --- RandomnessReady ---

type RandomnessReady struct{ RandomId uint32 }

func (RandomnessReady) Kind() Kind { return KindRandomnessReady }
func (r RandomnessReady) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindRandomnessReady)); err != nil {
		return err
	}
	return e.WriteU32(r.RandomId)
}

// --- Join ---

type Join struct{ Players []types.Player }

func (Join) Kind() Kind { return KindJoin }
func (j Join) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindJoin)); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(j.Players)); err != nil {
		return err
	}
	for _, p := range j.Players {
		if err := e.WriteString(string(p.Addr)); err != nil {
			return err
		}
		if err := e.WriteU16(p.Position); err != nil {
			return err
		}
		if err := e.WriteU64(p.Balance); err != nil {
			return err
		}
	}
	return nil
}

// --- ServerLeave ---

type ServerLeave struct{ ServerAddr types.Address }

func (ServerLeave) Kind() Kind { return KindServerLeave }
func (s ServerLeave) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindServerLeave)); err != nil {
		return err
	}
	return e.WriteString(string(s.ServerAddr))
}

// --- Leave ---

type Leave struct{ PlayerAddr types.Address }

func (Leave) Kind() Kind { return KindLeave }
func (l Leave) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindLeave)); err != nil {
		return err
	}
	return e.WriteString(string(l.PlayerAddr))
}

// --- GameStart ---

type GameStart struct{ AccessVersion uint64 }

func (GameStart) Kind() Kind { return KindGameStart }
func (g GameStart) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindGameStart)); err != nil {
		return err
	}
	return e.WriteU64(g.AccessVersion)
}

// --- WaitingTimeout ---

type WaitingTimeout struct{}

func (WaitingTimeout) Kind() Kind { return KindWaitingTimeout }
func (WaitingTimeout) EncodeTo(e *codec.Encoder) error {
	return e.WriteDiscriminant(uint8(KindWaitingTimeout))
}

// --- DrawRandomItems ---

type DrawRandomItems struct {
	Sender   types.Address
	RandomId uint32
	Indexes  []int
}

func (DrawRandomItems) Kind() Kind { return KindDrawRandomItems }
func (d DrawRandomItems) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindDrawRandomItems)); err != nil {
		return err
	}
	if err := e.WriteString(string(d.Sender)); err != nil {
		return err
	}
	if err := e.WriteU32(d.RandomId); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(d.Indexes)); err != nil {
		return err
	}
	for _, idx := range d.Indexes {
		if err := e.WriteU32(uint32(idx)); err != nil {
			return err
		}
	}
	return nil
}

// --- DrawTimeout ---

type DrawTimeout struct{}

func (DrawTimeout) Kind() Kind { return KindDrawTimeout }
func (DrawTimeout) EncodeTo(e *codec.Encoder) error {
	return e.WriteDiscriminant(uint8(KindDrawTimeout))
}

// --- ActionTimeout ---

type ActionTimeout struct{ PlayerAddr types.Address }

func (ActionTimeout) Kind() Kind { return KindActionTimeout }
func (a ActionTimeout) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindActionTimeout)); err != nil {
		return err
	}
	return e.WriteString(string(a.PlayerAddr))
}

// --- AnswerDecision ---

type AnswerDecision struct {
	Sender     types.Address
	DecisionId uint32
	Ciphertext []byte
	Digest     []byte
}

func (AnswerDecision) Kind() Kind { return KindAnswerDecision }
func (a AnswerDecision) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindAnswerDecision)); err != nil {
		return err
	}
	if err := e.WriteString(string(a.Sender)); err != nil {
		return err
	}
	if err := e.WriteU32(a.DecisionId); err != nil {
		return err
	}
	if err := e.WriteBytes(a.Ciphertext); err != nil {
		return err
	}
	return e.WriteBytes(a.Digest)
}

// --- SecretsReady ---

type SecretsReady struct{ RandomIds []uint32 }

func (SecretsReady) Kind() Kind { return KindSecretsReady }
func (s SecretsReady) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindSecretsReady)); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(s.RandomIds)); err != nil {
		return err
	}
	for _, id := range s.RandomIds {
		if err := e.WriteU32(id); err != nil {
			return err
		}
	}
	return nil
}

// --- Shutdown ---

type Shutdown struct{}

func (Shutdown) Kind() Kind                    { return KindShutdown }
func (Shutdown) EncodeTo(e *codec.Encoder) error { return e.WriteDiscriminant(uint8(KindShutdown)) }

// --- Bridge ---

type Bridge struct{ Raw []byte }

func (Bridge) Kind() Kind { return KindBridge }
func (b Bridge) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(KindBridge)); err != nil {
		return err
	}
	return e.WriteBytes(b.Raw)
}

// --- Init (synthetic, emitted by attachGame) ---

type Init struct{}

func (Init) Kind() Kind                    { return KindInit }
func (Init) EncodeTo(e *codec.Encoder) error { return e.WriteDiscriminant(uint8(KindInit)) }

// --- CheckpointReady (synthetic) ---

type CheckpointReady struct{}

func (CheckpointReady) Kind() Kind { return KindCheckpointReady }
func (CheckpointReady) EncodeTo(e *codec.Encoder) error {
	return e.WriteDiscriminant(uint8(KindCheckpointReady))
}

// --- EndOfHistory ---

type EndOfHistory struct{}

func (EndOfHistory) Kind() Kind { return KindEndOfHistory }
func (EndOfHistory) EncodeTo(e *codec.Encoder) error {
	return e.WriteDiscriminant(uint8(KindEndOfHistory))
}

// Marshal serializes any GameEvent.
func Marshal(ev GameEvent) ([]byte, error) { return codec.Marshal(ev) }

// Unmarshal deserializes a GameEvent from its discriminant-tagged bytes.
func Unmarshal(data []byte) (GameEvent, error) {
	d := codec.NewDecoder(data)
	tag, err := d.ReadDiscriminant()
	if err != nil {
		return nil, err
	}
	switch Kind(tag) {
	case KindCustom:
		sender, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		raw, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		return Custom{Sender: types.Address(sender), Raw: raw}, nil
	case KindReady:
		return Ready{}, nil
	case KindShareSecrets:
		sender, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		n, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		shares := make([]Share, n)
		for i := 0; i < n; i++ {
			if shares[i], err = decodeShare(d); err != nil {
				return nil, err
			}
		}
		return ShareSecrets{Sender: types.Address(sender), Shares: shares}, nil
	case KindOperationTimeout:
		n, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		addrs := make([]types.Address, n)
		for i := 0; i < n; i++ {
			s, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			addrs[i] = types.Address(s)
		}
		return OperationTimeout{Addrs: addrs}, nil
	case KindMask:
		sender, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		rid, err := d.ReadU32()
		if err != nil {
			return nil, err
		}
		n, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		cts := make([][]byte, n)
		for i := 0; i < n; i++ {
			if cts[i], err = d.ReadBytes(); err != nil {
				return nil, err
			}
		}
		return Mask{Sender: types.Address(sender), RandomId: rid, Ciphertexts: cts}, nil
	case KindLock:
		sender, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		rid, err := d.ReadU32()
		if err != nil {
			return nil, err
		}
		n, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		pairs := make([]CiphertextAndDigest, n)
		for i := 0; i < n; i++ {
			ct, err := d.ReadBytes()
			if err != nil {
				return nil, err
			}
			dg, err := d.ReadBytes()
			if err != nil {
				return nil, err
			}
			pairs[i] = CiphertextAndDigest{Ciphertext: ct, Digest: dg}
		}
		return Lock{Sender: types.Address(sender), RandomId: rid, CiphertextsAndDigests: pairs}, nil
	case KindRandomnessReady:
		rid, err := d.ReadU32()
		if err != nil {
			return nil, err
		}
		return RandomnessReady{RandomId: rid}, nil
	case KindJoin:
		n, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		players := make([]types.Player, n)
		for i := 0; i < n; i++ {
			addr, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			pos, err := d.ReadU16()
			if err != nil {
				return nil, err
			}
			bal, err := d.ReadU64()
			if err != nil {
				return nil, err
			}
			players[i] = types.Player{Node: types.Node{Addr: types.Address(addr)}, Position: pos, Balance: bal}
		}
		return Join{Players: players}, nil
	case KindServerLeave:
		addr, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return ServerLeave{ServerAddr: types.Address(addr)}, nil
	case KindLeave:
		addr, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return Leave{PlayerAddr: types.Address(addr)}, nil
	case KindGameStart:
		av, err := d.ReadU64()
		if err != nil {
			return nil, err
		}
		return GameStart{AccessVersion: av}, nil
	case KindWaitingTimeout:
		return WaitingTimeout{}, nil
	case KindDrawRandomItems:
		sender, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		rid, err := d.ReadU32()
		if err != nil {
			return nil, err
		}
		n, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		idxs := make([]int, n)
		for i := 0; i < n; i++ {
			v, err := d.ReadU32()
			if err != nil {
				return nil, err
			}
			idxs[i] = int(v)
		}
		return DrawRandomItems{Sender: types.Address(sender), RandomId: rid, Indexes: idxs}, nil
	case KindDrawTimeout:
		return DrawTimeout{}, nil
	case KindActionTimeout:
		addr, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return ActionTimeout{PlayerAddr: types.Address(addr)}, nil
	case KindAnswerDecision:
		sender, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		did, err := d.ReadU32()
		if err != nil {
			return nil, err
		}
		ct, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		dg, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		return AnswerDecision{Sender: types.Address(sender), DecisionId: did, Ciphertext: ct, Digest: dg}, nil
	case KindSecretsReady:
		n, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		ids := make([]uint32, n)
		for i := 0; i < n; i++ {
			if ids[i], err = d.ReadU32(); err != nil {
				return nil, err
			}
		}
		return SecretsReady{RandomIds: ids}, nil
	case KindShutdown:
		return Shutdown{}, nil
	case KindBridge:
		raw, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		return Bridge{Raw: raw}, nil
	case KindInit:
		return Init{}, nil
	case KindCheckpointReady:
		return CheckpointReady{}, nil
	case KindEndOfHistory:
		return EndOfHistory{}, nil
	default:
		return nil, fmt.Errorf("event: unknown discriminant %d", tag)
	}
}
