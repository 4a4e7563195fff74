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

// Package effect is the fixed ABI record exchanged with the bytecode
// handler across its linear memory: a context summary in,
// a list of context mutations out. Field order is fixed for ABI
// stability and must not be reordered.
package effect

import (
	"github.com/sage-x-project/race/pkg/codec"
	"github.com/sage-x-project/race/pkg/types"
)

// Ask requests a new DecisionState owned by Owner.
type Ask struct {
	Owner types.Address
}

func (a Ask) encode(e *codec.Encoder) error { return e.WriteString(string(a.Owner)) }
func decodeAsk(d *codec.Decoder) (Ask, error) {
	s, err := d.ReadString()
	return Ask{Owner: types.Address(s)}, err
}

// Assign makes one randomness index visible to Player.
type Assign struct {
	RandomId uint32
	Index    int
	Player   types.Address
}

func (a Assign) encode(e *codec.Encoder) error {
	if err := e.WriteU32(a.RandomId); err != nil {
		return err
	}
	if err := e.WriteU32(uint32(a.Index)); err != nil {
		return err
	}
	return e.WriteString(string(a.Player))
}

func decodeAssign(d *codec.Decoder) (Assign, error) {
	var a Assign
	var err error
	if a.RandomId, err = d.ReadU32(); err != nil {
		return a, err
	}
	idx, err := d.ReadU32()
	if err != nil {
		return a, err
	}
	a.Index = int(idx)
	p, err := d.ReadString()
	a.Player = types.Address(p)
	return a, err
}

// Reveal makes a set of randomness indexes publicly visible.
type Reveal struct {
	RandomId uint32
	Indexes  []int
}

func (r Reveal) encode(e *codec.Encoder) error {
	if err := e.WriteU32(r.RandomId); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(r.Indexes)); err != nil {
		return err
	}
	for _, idx := range r.Indexes {
		if err := e.WriteU32(uint32(idx)); err != nil {
			return err
		}
	}
	return nil
}

func decodeReveal(d *codec.Decoder) (Reveal, error) {
	var r Reveal
	var err error
	if r.RandomId, err = d.ReadU32(); err != nil {
		return r, err
	}
	n, err := d.ReadArrayLen()
	if err != nil {
		return r, err
	}
	r.Indexes = make([]int, n)
	for i := 0; i < n; i++ {
		v, err := d.ReadU32()
		if err != nil {
			return r, err
		}
		r.Indexes[i] = int(v)
	}
	return r, nil
}

// Release moves a DecisionState from answered to releasing.
type Release struct {
	DecisionId uint32
}

// InitRandomSpec asks the loop to create a new RandomState.
type InitRandomSpec struct {
	Options []string
	Owners  []types.Address
}

func (s InitRandomSpec) encode(e *codec.Encoder) error {
	if err := e.WriteArrayLen(len(s.Options)); err != nil {
		return err
	}
	for _, o := range s.Options {
		if err := e.WriteString(o); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(s.Owners)); err != nil {
		return err
	}
	for _, a := range s.Owners {
		if err := e.WriteString(string(a)); err != nil {
			return err
		}
	}
	return nil
}

func decodeInitRandomSpec(d *codec.Decoder) (InitRandomSpec, error) {
	var s InitRandomSpec
	n, err := d.ReadArrayLen()
	if err != nil {
		return s, err
	}
	s.Options = make([]string, n)
	for i := 0; i < n; i++ {
		if s.Options[i], err = d.ReadString(); err != nil {
			return s, err
		}
	}
	m, err := d.ReadArrayLen()
	if err != nil {
		return s, err
	}
	s.Owners = make([]types.Address, m)
	for i := 0; i < m; i++ {
		a, err := d.ReadString()
		if err != nil {
			return s, err
		}
		s.Owners[i] = types.Address(a)
	}
	return s, nil
}

// Transfer moves chips out of the game account to To.
type Transfer struct {
	To     types.Address
	Amount uint64
}

// LaunchSubGame starts a nested sub-game instance.
type LaunchSubGame struct {
	Id       uint32
	InitData []byte
}

// BridgeEvent is an opaque payload delivered to an external bridge
// (e.g. a parent game), not interpreted by this engine.
type BridgeEvent struct {
	Raw []byte
}

// EntryLockKind is the tri-state entry-lock the handler may request.
type EntryLockKind uint8

const (
	EntryOpen EntryLockKind = iota
	EntryJoinOnly
	EntryClosed
)

// Award pays Amount to Player from the prize pool.
type Award struct {
	Player types.Address
	Amount uint64
}

// HandleError is carried back when the handler rejected the event.
type HandleError struct {
	Kind    string
	Message string
}

func (h *HandleError) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteString(h.Kind); err != nil {
		return err
	}
	return e.WriteString(h.Message)
}

func (h *HandleError) DecodeFrom(d *codec.Decoder) error {
	var err error
	if h.Kind, err = d.ReadString(); err != nil {
		return err
	}
	h.Message, err = d.ReadString()
	return err
}

// RevealedEntry is one (randomId -> (index -> value)) pair of the
// Effect.Revealed map, in insertion order (maps have no stable
// iteration order in Go, so the wire type is an ordered list of pairs).
type RevealedEntry struct {
	RandomId uint32
	Values   map[int]string
}

type AnsweredEntry struct {
	DecisionId uint32
	Value      string
}

// Effect is the fixed context-mutation record. Field order
// matches the bytecode ABI exactly and must not change.
type Effect struct {
	ActionTimeout    *uint64
	WaitTimeout      *uint64
	StartGame        bool
	StopGame         bool
	CancelDispatch   bool
	Timestamp        uint64
	CurrRandomId     uint32
	CurrDecisionId   uint32
	NodesCount       uint32
	Asks             []Ask
	Assigns          []Assign
	Reveals          []Reveal
	Releases         []Release
	InitRandomStates []InitRandomSpec
	Revealed         []RevealedEntry
	Answered         []AnsweredEntry
	IsCheckpoint     bool
	Settles          []types.Settle
	HandlerState     []byte
	HasHandlerState  bool
	Error            *HandleError
	Transfers        []Transfer
	LaunchSubGames   []LaunchSubGame
	BridgeEvents     []BridgeEvent
	ValidPlayers     []types.Address
	IsInit           bool
	EntryLock        *EntryLockKind
	Reset            bool
	Logs             []string
	Awards           []Award
	RejectDeposits   []types.Address
	AcceptDeposits   []types.Address
	CurrSubGameId    uint32
}

func writeOptionalU64(e *codec.Encoder, v *uint64) error {
	if v == nil {
		return e.WriteU8(0)
	}
	if err := e.WriteU8(1); err != nil {
		return err
	}
	return e.WriteU64(*v)
}

func readOptionalU64(d *codec.Decoder) (*uint64, error) {
	tag, err := d.ReadU8()
	if err != nil || tag == 0 {
		return nil, err
	}
	v, err := d.ReadU64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeSettle(e *codec.Encoder, s types.Settle) error {
	if err := e.WriteU8(uint8(s.Op)); err != nil {
		return err
	}
	if err := e.WriteString(string(s.Player)); err != nil {
		return err
	}
	return e.WriteU64(s.Amount)
}

func readSettle(d *codec.Decoder) (types.Settle, error) {
	var s types.Settle
	op, err := d.ReadU8()
	if err != nil {
		return s, err
	}
	s.Op = types.SettleOp(op)
	addr, err := d.ReadString()
	if err != nil {
		return s, err
	}
	s.Player = types.Address(addr)
	s.Amount, err = d.ReadU64()
	return s, err
}

// EncodeTo serializes the Effect in its fixed wire field order.
func (eff *Effect) EncodeTo(e *codec.Encoder) error {
	if err := writeOptionalU64(e, eff.ActionTimeout); err != nil {
		return err
	}
	if err := writeOptionalU64(e, eff.WaitTimeout); err != nil {
		return err
	}
	if err := e.WriteBool(eff.StartGame); err != nil {
		return err
	}
	if err := e.WriteBool(eff.StopGame); err != nil {
		return err
	}
	if err := e.WriteBool(eff.CancelDispatch); err != nil {
		return err
	}
	if err := e.WriteU64(eff.Timestamp); err != nil {
		return err
	}
	if err := e.WriteU32(eff.CurrRandomId); err != nil {
		return err
	}
	if err := e.WriteU32(eff.CurrDecisionId); err != nil {
		return err
	}
	if err := e.WriteU32(eff.NodesCount); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(eff.Asks)); err != nil {
		return err
	}
	for _, a := range eff.Asks {
		if err := a.encode(e); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.Assigns)); err != nil {
		return err
	}
	for _, a := range eff.Assigns {
		if err := a.encode(e); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.Reveals)); err != nil {
		return err
	}
	for _, r := range eff.Reveals {
		if err := r.encode(e); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.Releases)); err != nil {
		return err
	}
	for _, r := range eff.Releases {
		if err := e.WriteU32(r.DecisionId); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.InitRandomStates)); err != nil {
		return err
	}
	for _, s := range eff.InitRandomStates {
		if err := s.encode(e); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.Revealed)); err != nil {
		return err
	}
	for _, r := range eff.Revealed {
		if err := e.WriteU32(r.RandomId); err != nil {
			return err
		}
		if err := e.WriteArrayLen(len(r.Values)); err != nil {
			return err
		}
		for idx, v := range r.Values {
			if err := e.WriteU32(uint32(idx)); err != nil {
				return err
			}
			if err := e.WriteString(v); err != nil {
				return err
			}
		}
	}
	if err := e.WriteArrayLen(len(eff.Answered)); err != nil {
		return err
	}
	for _, a := range eff.Answered {
		if err := e.WriteU32(a.DecisionId); err != nil {
			return err
		}
		if err := e.WriteString(a.Value); err != nil {
			return err
		}
	}
	if err := e.WriteBool(eff.IsCheckpoint); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(eff.Settles)); err != nil {
		return err
	}
	for _, s := range eff.Settles {
		if err := writeSettle(e, s); err != nil {
			return err
		}
	}
	if err := e.WriteBool(eff.HasHandlerState); err != nil {
		return err
	}
	if eff.HasHandlerState {
		if err := e.WriteBytes(eff.HandlerState); err != nil {
			return err
		}
	}
	if eff.Error == nil {
		if err := e.WriteU8(0); err != nil {
			return err
		}
	} else {
		if err := e.WriteU8(1); err != nil {
			return err
		}
		if err := eff.Error.EncodeTo(e); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.Transfers)); err != nil {
		return err
	}
	for _, t := range eff.Transfers {
		if err := e.WriteString(string(t.To)); err != nil {
			return err
		}
		if err := e.WriteU64(t.Amount); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.LaunchSubGames)); err != nil {
		return err
	}
	for _, l := range eff.LaunchSubGames {
		if err := e.WriteU32(l.Id); err != nil {
			return err
		}
		if err := e.WriteBytes(l.InitData); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.BridgeEvents)); err != nil {
		return err
	}
	for _, b := range eff.BridgeEvents {
		if err := e.WriteBytes(b.Raw); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.ValidPlayers)); err != nil {
		return err
	}
	for _, a := range eff.ValidPlayers {
		if err := e.WriteString(string(a)); err != nil {
			return err
		}
	}
	if err := e.WriteBool(eff.IsInit); err != nil {
		return err
	}
	if eff.EntryLock == nil {
		if err := e.WriteU8(0); err != nil {
			return err
		}
	} else {
		if err := e.WriteU8(1); err != nil {
			return err
		}
		if err := e.WriteU8(uint8(*eff.EntryLock)); err != nil {
			return err
		}
	}
	if err := e.WriteBool(eff.Reset); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(eff.Logs)); err != nil {
		return err
	}
	for _, l := range eff.Logs {
		if err := e.WriteString(l); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.Awards)); err != nil {
		return err
	}
	for _, a := range eff.Awards {
		if err := e.WriteString(string(a.Player)); err != nil {
			return err
		}
		if err := e.WriteU64(a.Amount); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.RejectDeposits)); err != nil {
		return err
	}
	for _, a := range eff.RejectDeposits {
		if err := e.WriteString(string(a)); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(eff.AcceptDeposits)); err != nil {
		return err
	}
	for _, a := range eff.AcceptDeposits {
		if err := e.WriteString(string(a)); err != nil {
			return err
		}
	}
	return e.WriteU32(eff.CurrSubGameId)
}

// Unmarshal deserializes an Effect, mirroring EncodeTo field for field.
func Unmarshal(data []byte) (*Effect, error) {
	d := codec.NewDecoder(data)
	eff := &Effect{}
	var err error
	if eff.ActionTimeout, err = readOptionalU64(d); err != nil {
		return nil, err
	}
	if eff.WaitTimeout, err = readOptionalU64(d); err != nil {
		return nil, err
	}
	if eff.StartGame, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if eff.StopGame, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if eff.CancelDispatch, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if eff.Timestamp, err = d.ReadU64(); err != nil {
		return nil, err
	}
	if eff.CurrRandomId, err = d.ReadU32(); err != nil {
		return nil, err
	}
	if eff.CurrDecisionId, err = d.ReadU32(); err != nil {
		return nil, err
	}
	if eff.NodesCount, err = d.ReadU32(); err != nil {
		return nil, err
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.Asks = make([]Ask, n)
		for i := 0; i < n; i++ {
			if eff.Asks[i], err = decodeAsk(d); err != nil {
				return nil, err
			}
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.Assigns = make([]Assign, n)
		for i := 0; i < n; i++ {
			if eff.Assigns[i], err = decodeAssign(d); err != nil {
				return nil, err
			}
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.Reveals = make([]Reveal, n)
		for i := 0; i < n; i++ {
			if eff.Reveals[i], err = decodeReveal(d); err != nil {
				return nil, err
			}
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.Releases = make([]Release, n)
		for i := 0; i < n; i++ {
			id, err := d.ReadU32()
			if err != nil {
				return nil, err
			}
			eff.Releases[i] = Release{DecisionId: id}
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.InitRandomStates = make([]InitRandomSpec, n)
		for i := 0; i < n; i++ {
			if eff.InitRandomStates[i], err = decodeInitRandomSpec(d); err != nil {
				return nil, err
			}
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.Revealed = make([]RevealedEntry, n)
		for i := 0; i < n; i++ {
			rid, err := d.ReadU32()
			if err != nil {
				return nil, err
			}
			m, err := d.ReadArrayLen()
			if err != nil {
				return nil, err
			}
			values := make(map[int]string, m)
			for j := 0; j < m; j++ {
				idx, err := d.ReadU32()
				if err != nil {
					return nil, err
				}
				v, err := d.ReadString()
				if err != nil {
					return nil, err
				}
				values[int(idx)] = v
			}
			eff.Revealed[i] = RevealedEntry{RandomId: rid, Values: values}
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.Answered = make([]AnsweredEntry, n)
		for i := 0; i < n; i++ {
			did, err := d.ReadU32()
			if err != nil {
				return nil, err
			}
			v, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			eff.Answered[i] = AnsweredEntry{DecisionId: did, Value: v}
		}
	}
	if eff.IsCheckpoint, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.Settles = make([]types.Settle, n)
		for i := 0; i < n; i++ {
			if eff.Settles[i], err = readSettle(d); err != nil {
				return nil, err
			}
		}
	}
	if eff.HasHandlerState, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if eff.HasHandlerState {
		if eff.HandlerState, err = d.ReadBytes(); err != nil {
			return nil, err
		}
	}
	hasErr, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	if hasErr == 1 {
		he := &HandleError{}
		if err := he.DecodeFrom(d); err != nil {
			return nil, err
		}
		eff.Error = he
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.Transfers = make([]Transfer, n)
		for i := 0; i < n; i++ {
			to, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			amt, err := d.ReadU64()
			if err != nil {
				return nil, err
			}
			eff.Transfers[i] = Transfer{To: types.Address(to), Amount: amt}
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.LaunchSubGames = make([]LaunchSubGame, n)
		for i := 0; i < n; i++ {
			id, err := d.ReadU32()
			if err != nil {
				return nil, err
			}
			data, err := d.ReadBytes()
			if err != nil {
				return nil, err
			}
			eff.LaunchSubGames[i] = LaunchSubGame{Id: id, InitData: data}
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.BridgeEvents = make([]BridgeEvent, n)
		for i := 0; i < n; i++ {
			raw, err := d.ReadBytes()
			if err != nil {
				return nil, err
			}
			eff.BridgeEvents[i] = BridgeEvent{Raw: raw}
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.ValidPlayers = make([]types.Address, n)
		for i := 0; i < n; i++ {
			a, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			eff.ValidPlayers[i] = types.Address(a)
		}
	}
	if eff.IsInit, err = d.ReadBool(); err != nil {
		return nil, err
	}
	hasLock, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	if hasLock == 1 {
		k, err := d.ReadU8()
		if err != nil {
			return nil, err
		}
		kind := EntryLockKind(k)
		eff.EntryLock = &kind
	}
	if eff.Reset, err = d.ReadBool(); err != nil {
		return nil, err
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.Logs = make([]string, n)
		for i := 0; i < n; i++ {
			if eff.Logs[i], err = d.ReadString(); err != nil {
				return nil, err
			}
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.Awards = make([]Award, n)
		for i := 0; i < n; i++ {
			p, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			amt, err := d.ReadU64()
			if err != nil {
				return nil, err
			}
			eff.Awards[i] = Award{Player: types.Address(p), Amount: amt}
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.RejectDeposits = make([]types.Address, n)
		for i := 0; i < n; i++ {
			a, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			eff.RejectDeposits[i] = types.Address(a)
		}
	}
	if n, err := d.ReadArrayLen(); err != nil {
		return nil, err
	} else {
		eff.AcceptDeposits = make([]types.Address, n)
		for i := 0; i < n; i++ {
			a, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			eff.AcceptDeposits[i] = types.Address(a)
		}
	}
	if eff.CurrSubGameId, err = d.ReadU32(); err != nil {
		return nil, err
	}
	return eff, nil
}

// Marshal serializes eff per EncodeTo's fixed field order.
func Marshal(eff *Effect) ([]byte, error) { return codec.Marshal(eff) }
