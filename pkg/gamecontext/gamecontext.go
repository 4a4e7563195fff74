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

// Package gamecontext implements GameContext, the aggregate:
// players, servers, the randomness/decision state tables, the handler's
// opaque state blob, the one pending dispatch timer and the two
// monotonic version counters, reconciled against a checkpoint. It plays
// the role a mutable per-connection session object plays elsewhere:
// the single mutable record every event-loop step reads and rewrites.
package gamecontext

import (
	"github.com/sage-x-project/race/internal/metrics"
	"github.com/sage-x-project/race/internal/raceerr"
	"github.com/sage-x-project/race/pkg/checkpoint"
	"github.com/sage-x-project/race/pkg/decision"
	"github.com/sage-x-project/race/pkg/effect"
	"github.com/sage-x-project/race/pkg/random"
	"github.com/sage-x-project/race/pkg/types"
)

// GameContext is the full in-memory state of one attached game.
type GameContext struct {
	GameId   int
	Players  []types.Player
	Servers  []types.Server
	Versions types.Versions

	// HandlerState is the bytecode handler's own serialized state,
	// opaque to everything outside pkg/bridge.
	HandlerState []byte

	// Timestamp is the last broadcast frame's logical clock value; it
	// must never move backwards (a non-decreasing timestamp).
	Timestamp uint64

	// Dispatch is the single pending timer the handler may hold at a
	// time (at most one pending dispatch).
	Dispatch *types.DispatchEvent

	// Running reflects the handler's startGame/stopGame effect.
	Running bool

	// AllowExit mirrors the handler's stopGame effect (the ABI carries
	// no separate allowExit field; a Leave event is only honored once
	// the handler has stopped the game).
	AllowExit bool

	// EntryLock is the handler's latest entry-lock instruction, nil
	// until the handler sets one.
	EntryLock *effect.EntryLockKind

	// PendingSettles accumulates settlement instructions from the most
	// recently applied effect, for the base client to flush on-chain.
	PendingSettles []types.Settle

	// PendingDeposits holds chip deposits a Sync frame announced that the
	// handler has not yet accepted or rejected.
	PendingDeposits map[types.Address]uint64

	// PendingTransfers/PendingSubGameLaunches/PendingBridgeEvents queue
	// the remaining effect mutations the base client relays to external
	// collaborators (the on-chain transactor, a sub-game supervisor, a
	// parent game's bridge) rather than applying locally.
	PendingTransfers       []effect.Transfer
	PendingSubGameLaunches []effect.LaunchSubGame
	PendingBridgeEvents    []effect.BridgeEvent

	nextRandomId   uint32
	nextDecisionId uint32
	RandomStates   map[uint32]*random.State
	DecisionStates map[uint32]*decision.State

	Checkpoint *checkpoint.Checkpoint
}

// New returns an empty GameContext for gameId.
func New(gameId int) *GameContext {
	return &GameContext{
		GameId:          gameId,
		RandomStates:    make(map[uint32]*random.State),
		DecisionStates:  make(map[uint32]*decision.State),
		PendingDeposits: make(map[types.Address]uint64),
		Checkpoint:      checkpoint.New(),
	}
}

// AddPlayer appends a player, rejecting a duplicate position or address
// (table positions and addresses are both unique).
func (g *GameContext) AddPlayer(p types.Player) error {
	for _, existing := range g.Players {
		if existing.Position == p.Position {
			return raceerr.New(raceerr.KindDuplicatePosition, string(p.Addr), nil)
		}
		if existing.Addr == p.Addr {
			return raceerr.New(raceerr.KindDuplicateAddress, string(p.Addr), nil)
		}
	}
	g.Players = append(g.Players, p)
	return nil
}

// RemovePlayer drops the player at addr, if present.
func (g *GameContext) RemovePlayer(addr types.Address) {
	for i, p := range g.Players {
		if p.Addr == addr {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			return
		}
	}
}

// ApplyAndTakeSettles applies every queued settlement instruction to the
// player table (SettleAdd/SettleSub adjust Balance, SettleEject removes
// the player outright) and drains PendingSettles in the same step, so a
// repeat call returns nil rather than re-applying a batch.
func (g *GameContext) ApplyAndTakeSettles() []types.Settle {
	settles := g.PendingSettles
	g.PendingSettles = nil
	for _, s := range settles {
		switch s.Op {
		case types.SettleAdd:
			for i := range g.Players {
				if g.Players[i].Addr == s.Player {
					g.Players[i].Balance += s.Amount
					break
				}
			}
		case types.SettleSub:
			for i := range g.Players {
				if g.Players[i].Addr == s.Player {
					g.Players[i].Balance -= s.Amount
					break
				}
			}
		case types.SettleEject:
			g.RemovePlayer(s.Player)
		}
	}
	return settles
}

// AddServer appends a server, rejecting a duplicate address.
func (g *GameContext) AddServer(s types.Server) error {
	for _, existing := range g.Servers {
		if existing.Addr == s.Addr {
			return raceerr.New(raceerr.KindDuplicateAddress, string(s.Addr), nil)
		}
	}
	g.Servers = append(g.Servers, s)
	return nil
}

// RemoveServer drops the server at addr, if present.
func (g *GameContext) RemoveServer(addr types.Address) {
	for i, s := range g.Servers {
		if s.Addr == addr {
			g.Servers = append(g.Servers[:i], g.Servers[i+1:]...)
			return
		}
	}
}

// InitRandomState allocates the next dense, 1-based random id (the
// invariant: randomness/decision ids are dense and 1-based) and stores a
// freshly created random.State for it.
func (g *GameContext) InitRandomState(options []string, owners []types.Address) uint32 {
	g.nextRandomId++
	id := g.nextRandomId
	g.RandomStates[id] = random.New(id, options, owners)
	metrics.RandomStatesActive.Set(float64(len(g.RandomStates)))
	return id
}

// InitDecisionState allocates the next dense, 1-based decision id and
// stores a freshly asked decision.State for it.
func (g *GameContext) InitDecisionState(owner types.Address) uint32 {
	g.nextDecisionId++
	id := g.nextDecisionId
	g.DecisionStates[id] = decision.Ask(id, owner)
	return id
}

// RandomState looks up a previously initialized randomness instance.
func (g *GameContext) RandomState(id uint32) (*random.State, error) {
	s, ok := g.RandomStates[id]
	if !ok {
		return nil, raceerr.New(raceerr.KindInvalidRandomId, "", nil)
	}
	return s, nil
}

// DecisionState looks up a previously initialized decision instance.
func (g *GameContext) DecisionState(id uint32) (*decision.State, error) {
	s, ok := g.DecisionStates[id]
	if !ok {
		return nil, raceerr.New(raceerr.KindInvalidDecisionId, "", nil)
	}
	return s, nil
}

// SetDispatch records the handler's single pending timer, replacing any
// previous one (a new dispatch call always supersedes the
// last, it never queues a second).
func (g *GameContext) SetDispatch(timeout uint64, ev any) {
	g.Dispatch = &types.DispatchEvent{Timeout: timeout, Event: ev}
}

// TakeDispatch clears and returns the pending dispatch, or nil if none.
func (g *GameContext) TakeDispatch() *types.DispatchEvent {
	d := g.Dispatch
	g.Dispatch = nil
	return d
}

// AdvanceTimestamp rejects any value older than the current clock (the
// timestamp is non-decreasing).
func (g *GameContext) AdvanceTimestamp(ts uint64) error {
	if ts < g.Timestamp {
		return raceerr.New(raceerr.KindEventStateShaMismatch, "", nil)
	}
	g.Timestamp = ts
	return nil
}

// BumpSettleVersion advances the settle version by exactly one (the
// settlement invariant: a batch moves the counter by exactly one,
// regardless of how many individual settle instructions it carries).
func (g *GameContext) BumpSettleVersion() {
	g.Versions.SettleVersion++
}

// CurrRandomId returns the highest allocated random id (0 if none yet).
func (g *GameContext) CurrRandomId() uint32 { return g.nextRandomId }

// CurrDecisionId returns the highest allocated decision id (0 if none
// yet).
func (g *GameContext) CurrDecisionId() uint32 { return g.nextDecisionId }

// RotateForCheckpoint clears the randomness and decision tables and
// resets their id counters, mirroring a checkpoint effect's "rotate the
// checkpoint" instruction a handler's applyEffect can return. Unlike ApplyCheckpoint
// it does not touch Versions or the Checkpoint's Merkle data — those
// are reconciled separately from the on-chain account.
func (g *GameContext) RotateForCheckpoint() {
	g.RandomStates = make(map[uint32]*random.State)
	g.DecisionStates = make(map[uint32]*decision.State)
	g.nextRandomId = 0
	g.nextDecisionId = 0
	metrics.RandomStatesActive.Set(0)
}

// ApplyCheckpoint reconciles an on-chain root/accessVersion with this
// context: it resets the randomness table (a "checkpoint
// rotation clears in-flight randomness, since any mask/lock progress
// belongs to the settled batch, not the next one") while leaving
// decisions, players and servers untouched.
func (g *GameContext) ApplyCheckpoint(accessVersion, expectedSettleVersion, actualSettleVersion uint64) error {
	if err := g.Checkpoint.ApplyCheckpoint(accessVersion, expectedSettleVersion, actualSettleVersion); err != nil {
		return err
	}
	g.Versions.AccessVersion = accessVersion
	g.RandomStates = make(map[uint32]*random.State)
	g.nextRandomId = 0
	metrics.RandomStatesActive.Set(0)
	return nil
}
