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

// Package bridge implements the effect bridge: build an
// Effect-in from the game context, invoke the bytecode handler, and
// apply the returned Effect-out back onto the context.
package bridge

import (
	"context"
	"sort"

	"github.com/sage-x-project/race/internal/raceerr"
	"github.com/sage-x-project/race/pkg/effect"
	"github.com/sage-x-project/race/pkg/event"
	"github.com/sage-x-project/race/pkg/gamecontext"
	"github.com/sage-x-project/race/pkg/handler"
	"github.com/sage-x-project/race/pkg/types"
)

// Bridge couples one BytecodeHandler to the calling convention every
// attached game drives it with.
type Bridge struct {
	Handler handler.BytecodeHandler
}

// New returns a Bridge driving h.
func New(h handler.BytecodeHandler) *Bridge {
	return &Bridge{Handler: h}
}

// buildEffectIn summarizes gctx into the context record a handler expects:
// timestamp, randomness/decision id counters, node count, the revealed/
// answered maps carried forward from the current randomness/decision
// tables, handlerState, validPlayers and isInit. entryType/players/
// maxPlayers are carried in the side payload (InitAccount), not here,
// so the fixed Effect ABI never needs fields beyond what applyEffect
// also produces.
func buildEffectIn(gctx *gamecontext.GameContext, isInit bool) *effect.Effect {
	randomIds := make([]uint32, 0, len(gctx.RandomStates))
	for id := range gctx.RandomStates {
		randomIds = append(randomIds, id)
	}
	sort.Slice(randomIds, func(i, j int) bool { return randomIds[i] < randomIds[j] })

	eff := &effect.Effect{
		Timestamp:      gctx.Timestamp,
		CurrRandomId:   gctx.CurrRandomId(),
		CurrDecisionId: gctx.CurrDecisionId(),
		NodesCount:     uint32(len(gctx.Players) + len(gctx.Servers)),
		IsInit:         isInit,
	}

	for _, id := range randomIds {
		rs := gctx.RandomStates[id]
		if len(rs.Revealed) == 0 {
			continue
		}
		values := make(map[int]string, len(rs.Revealed))
		for idx, v := range rs.Revealed {
			values[idx] = v
		}
		eff.Revealed = append(eff.Revealed, effect.RevealedEntry{RandomId: id, Values: values})
	}

	decisionIds := make([]uint32, 0, len(gctx.DecisionStates))
	for id := range gctx.DecisionStates {
		decisionIds = append(decisionIds, id)
	}
	sort.Slice(decisionIds, func(i, j int) bool { return decisionIds[i] < decisionIds[j] })
	for _, id := range decisionIds {
		ds := gctx.DecisionStates[id]
		if ds.Value != nil {
			eff.Answered = append(eff.Answered, effect.AnsweredEntry{DecisionId: id, Value: *ds.Value})
		}
	}

	if gctx.HandlerState != nil {
		eff.HandlerState = gctx.HandlerState
		eff.HasHandlerState = true
	}
	for _, p := range gctx.Players {
		if p.Status == types.NodeStatusReady {
			eff.ValidPlayers = append(eff.ValidPlayers, p.Addr)
		}
	}
	return eff
}

// InitState builds an Effect-in with isInit set, invokes the handler's
// init_state with initData, and applies the resulting effect.
func (b *Bridge) InitState(ctx context.Context, gctx *gamecontext.GameContext, initData []byte) (*effect.Effect, error) {
	in := buildEffectIn(gctx, true)
	out, err := b.Handler.InitState(ctx, in, initData)
	if err != nil {
		return nil, err
	}
	if err := applyEffect(gctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// HandleEvent builds an Effect-in, marshals ev, invokes handle_event,
// and applies the resulting effect.
func (b *Bridge) HandleEvent(ctx context.Context, gctx *gamecontext.GameContext, ev event.GameEvent) (*effect.Effect, error) {
	in := buildEffectIn(gctx, false)
	raw, err := event.Marshal(ev)
	if err != nil {
		return nil, err
	}
	out, err := b.Handler.HandleEvent(ctx, in, raw)
	if err != nil {
		return nil, err
	}
	if err := applyEffect(gctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// applyEffect performs the mutation list a handler returns,
// atomically with respect to the event that produced eff.
func applyEffect(gctx *gamecontext.GameContext, eff *effect.Effect) error {
	if eff.Error != nil {
		return raceerr.New(raceerr.KindHandleEventError, eff.Error.Kind, nil)
	}

	if eff.StartGame {
		gctx.Running = true
	}
	if eff.StopGame {
		gctx.Running = false
		gctx.AllowExit = true
	}
	if eff.CancelDispatch {
		gctx.TakeDispatch()
	}
	if eff.ActionTimeout != nil {
		gctx.SetDispatch(*eff.ActionTimeout, event.ActionTimeout{})
	}
	if eff.WaitTimeout != nil {
		gctx.SetDispatch(*eff.WaitTimeout, event.WaitingTimeout{})
	}

	for _, a := range eff.Asks {
		gctx.InitDecisionState(a.Owner)
	}
	for _, a := range eff.Assigns {
		rs, err := gctx.RandomState(a.RandomId)
		if err != nil {
			return err
		}
		if err := rs.Assign(a.Index, a.Player); err != nil {
			return err
		}
	}
	for _, r := range eff.Reveals {
		rs, err := gctx.RandomState(r.RandomId)
		if err != nil {
			return err
		}
		if err := rs.Reveal(r.Indexes); err != nil {
			return err
		}
	}
	for _, r := range eff.Releases {
		ds, err := gctx.DecisionState(r.DecisionId)
		if err != nil {
			return err
		}
		if err := ds.Release(); err != nil {
			return err
		}
	}
	for _, s := range eff.InitRandomStates {
		gctx.InitRandomState(s.Options, s.Owners)
	}

	settles := append([]types.Settle(nil), eff.Settles...)
	for _, a := range eff.Awards {
		settles = append(settles, types.Settle{Op: types.SettleAdd, Player: a.Player, Amount: a.Amount})
	}
	for _, addr := range eff.AcceptDeposits {
		amount, ok := gctx.PendingDeposits[addr]
		if !ok {
			continue
		}
		delete(gctx.PendingDeposits, addr)
		settles = append(settles, types.Settle{Op: types.SettleAdd, Player: addr, Amount: amount})
	}
	for _, addr := range eff.RejectDeposits {
		delete(gctx.PendingDeposits, addr)
	}
	if len(settles) > 0 {
		gctx.PendingSettles = append(gctx.PendingSettles, settles...)
		gctx.BumpSettleVersion()
	}

	gctx.PendingTransfers = append(gctx.PendingTransfers, eff.Transfers...)
	gctx.PendingSubGameLaunches = append(gctx.PendingSubGameLaunches, eff.LaunchSubGames...)
	gctx.PendingBridgeEvents = append(gctx.PendingBridgeEvents, eff.BridgeEvents...)

	if eff.HasHandlerState {
		gctx.HandlerState = eff.HandlerState
	}

	if eff.EntryLock != nil {
		lock := *eff.EntryLock
		gctx.EntryLock = &lock
	}

	if eff.IsCheckpoint {
		gctx.RotateForCheckpoint()
	}

	return nil
}

