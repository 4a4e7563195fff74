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

// Package broadcast is the tagged BroadcastFrame union the transactor's
// stream yields: Event, Message, TxState, Sync and
// Backlogs, dispatched by the base client's event loop.
package broadcast

import (
	"fmt"

	"github.com/sage-x-project/race/pkg/codec"
	"github.com/sage-x-project/race/pkg/event"
	"github.com/sage-x-project/race/pkg/types"
)

// FrameKind is the wire discriminant, in wire declaration order.
type FrameKind uint8

const (
	FrameEvent FrameKind = iota
	FrameMessage
	FrameTxState
	FrameSync
	FrameBacklogs
)

// Frame is implemented by every concrete variant below.
type Frame interface {
	codec.Encodable
	FrameKind() FrameKind
}

// Event carries one replayed GameEvent plus the clock value and the
// handler-state hash the transactor expects after applying it.
type Event struct {
	Event     event.GameEvent
	Timestamp uint64
	StateSha  string
}

func (Event) FrameKind() FrameKind { return FrameEvent }
func (f Event) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(FrameEvent)); err != nil {
		return err
	}
	inner, err := event.Marshal(f.Event)
	if err != nil {
		return err
	}
	if err := e.WriteBytes(inner); err != nil {
		return err
	}
	if err := e.WriteU64(f.Timestamp); err != nil {
		return err
	}
	return e.WriteString(f.StateSha)
}

// Message is a plain chat message, relayed verbatim to onMessage.
type Message struct {
	Sender  types.Address
	Content string
}

func (Message) FrameKind() FrameKind { return FrameMessage }
func (f Message) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(FrameMessage)); err != nil {
		return err
	}
	if err := e.WriteString(string(f.Sender)); err != nil {
		return err
	}
	return e.WriteString(f.Content)
}

// TxStateKind is the on-chain transaction lifecycle stage.
type TxStateKind uint8

const (
	TxInit TxStateKind = iota
	TxPlayerConfirming
	TxSucceed
	TxFailed
)

// TxState reports the transactor's on-chain settlement progress.
// PlayerConfirming additionally names the players whose confirmation is
// outstanding, so the base client can request their profiles.
type TxState struct {
	Kind    TxStateKind
	Players []types.Address
}

func (TxState) FrameKind() FrameKind { return FrameTxState }
func (f TxState) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(FrameTxState)); err != nil {
		return err
	}
	if err := e.WriteU8(uint8(f.Kind)); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(f.Players)); err != nil {
		return err
	}
	for _, a := range f.Players {
		if err := e.WriteString(string(a)); err != nil {
			return err
		}
	}
	return nil
}

// Deposit is one pending chip deposit announced by a Sync frame.
type Deposit struct {
	Player types.Address
	Amount uint64
}

// Sync announces newly joined players/servers/deposits and bumps the
// access version (a Sync frame).
type Sync struct {
	NewPlayers     []types.Player
	NewServers     []types.Server
	NewDeposits    []Deposit
	TransactorAddr types.Address
	AccessVersion  uint64
}

func (Sync) FrameKind() FrameKind { return FrameSync }
func (f Sync) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(FrameSync)); err != nil {
		return err
	}
	if err := e.WriteArrayLen(len(f.NewPlayers)); err != nil {
		return err
	}
	for _, p := range f.NewPlayers {
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
	if err := e.WriteArrayLen(len(f.NewServers)); err != nil {
		return err
	}
	for _, s := range f.NewServers {
		if err := e.WriteString(string(s.Addr)); err != nil {
			return err
		}
		if err := e.WriteString(s.Endpoint); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(f.NewDeposits)); err != nil {
		return err
	}
	for _, d := range f.NewDeposits {
		if err := e.WriteString(string(d.Player)); err != nil {
			return err
		}
		if err := e.WriteU64(d.Amount); err != nil {
			return err
		}
	}
	if err := e.WriteString(string(f.TransactorAddr)); err != nil {
		return err
	}
	return e.WriteU64(f.AccessVersion)
}

// Backlogs carries the reconciled off-chain checkpoint delta plus every
// Event/Sync frame the base client must replay to catch up.
type Backlogs struct {
	CheckpointOffChain []byte // encoded and decoded only when HasCheckpoint is set (option)
	HasCheckpoint      bool
	Entries            []Frame // each is an Event or Sync frame, in replay order
	StateSha           string
}

func (Backlogs) FrameKind() FrameKind { return FrameBacklogs }
func (f Backlogs) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteDiscriminant(uint8(FrameBacklogs)); err != nil {
		return err
	}
	if err := e.WriteBool(f.HasCheckpoint); err != nil {
		return err
	}
	if f.HasCheckpoint {
		if err := e.WriteBytes(f.CheckpointOffChain); err != nil {
			return err
		}
	}
	if err := e.WriteArrayLen(len(f.Entries)); err != nil {
		return err
	}
	for _, entry := range f.Entries {
		inner, err := Marshal(entry)
		if err != nil {
			return err
		}
		if err := e.WriteBytes(inner); err != nil {
			return err
		}
	}
	return e.WriteString(f.StateSha)
}

// Marshal serializes any Frame.
func Marshal(f Frame) ([]byte, error) { return codec.Marshal(f) }

// Unmarshal deserializes a Frame from its discriminant-tagged bytes.
func Unmarshal(data []byte) (Frame, error) {
	d := codec.NewDecoder(data)
	tag, err := d.ReadDiscriminant()
	if err != nil {
		return nil, err
	}
	switch FrameKind(tag) {
	case FrameEvent:
		inner, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		ev, err := event.Unmarshal(inner)
		if err != nil {
			return nil, err
		}
		ts, err := d.ReadU64()
		if err != nil {
			return nil, err
		}
		sha, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return Event{Event: ev, Timestamp: ts, StateSha: sha}, nil
	case FrameMessage:
		sender, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		content, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return Message{Sender: types.Address(sender), Content: content}, nil
	case FrameTxState:
		kind, err := d.ReadU8()
		if err != nil {
			return nil, err
		}
		n, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		players := make([]types.Address, n)
		for i := 0; i < n; i++ {
			a, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			players[i] = types.Address(a)
		}
		return TxState{Kind: TxStateKind(kind), Players: players}, nil
	case FrameSync:
		np, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		players := make([]types.Player, np)
		for i := 0; i < np; i++ {
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
		ns, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		servers := make([]types.Server, ns)
		for i := 0; i < ns; i++ {
			addr, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			ep, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			servers[i] = types.Server{Node: types.Node{Addr: types.Address(addr)}, Endpoint: ep}
		}
		nd, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		deposits := make([]Deposit, nd)
		for i := 0; i < nd; i++ {
			p, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			amt, err := d.ReadU64()
			if err != nil {
				return nil, err
			}
			deposits[i] = Deposit{Player: types.Address(p), Amount: amt}
		}
		transactorAddr, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		av, err := d.ReadU64()
		if err != nil {
			return nil, err
		}
		return Sync{
			NewPlayers:     players,
			NewServers:     servers,
			NewDeposits:    deposits,
			TransactorAddr: types.Address(transactorAddr),
			AccessVersion:  av,
		}, nil
	case FrameBacklogs:
		hasCp, err := d.ReadBool()
		if err != nil {
			return nil, err
		}
		var cp []byte
		if hasCp {
			if cp, err = d.ReadBytes(); err != nil {
				return nil, err
			}
		}
		n, err := d.ReadArrayLen()
		if err != nil {
			return nil, err
		}
		entries := make([]Frame, n)
		for i := 0; i < n; i++ {
			raw, err := d.ReadBytes()
			if err != nil {
				return nil, err
			}
			entries[i], err = Unmarshal(raw)
			if err != nil {
				return nil, err
			}
		}
		sha, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return Backlogs{CheckpointOffChain: cp, HasCheckpoint: hasCp, Entries: entries, StateSha: sha}, nil
	default:
		return nil, fmt.Errorf("broadcast: unknown discriminant %d", tag)
	}
}
