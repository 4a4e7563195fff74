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

// Package transport is the narrow contract the base client drives the
// transactor's broadcast stream through: a factory for an ordered
// subscription of BroadcastFrame/ConnectionState items, and a sink for
// attachGame/submitEvent/submitMessage/exitGame/disconnect. It deliberately
// says nothing about how a frame reaches the wire, mirroring the single
// narrow-interface habit used elsewhere in this codebase for things that
// front a remote peer.
package transport

import (
	"context"
	"errors"

	"github.com/sage-x-project/race/pkg/broadcast"
	"github.com/sage-x-project/race/pkg/event"
	"github.com/sage-x-project/race/pkg/types"
)

// ConnState is the connection lifecycle state a subscription may report
// alongside, or instead of, broadcast frames.
type ConnState int

const (
	Connected ConnState = iota
	Disconnected
	Reconnected
	Closed
)

func (s ConnState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Reconnected:
		return "reconnected"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// StreamItem is one element of a subscription: either a broadcast frame
// or a connection-state transition, never both. Frame is nil when State
// carries the meaningful value.
type StreamItem struct {
	Frame broadcast.Frame
	State ConnState
}

// IsState reports whether this item is a connection-state transition
// rather than a broadcast frame.
func (i StreamItem) IsState() bool { return i.Frame == nil }

// SubscribeEventParams pins the settleVersion a subscription (or
// resubscription after a reconnect) should start replaying from.
type SubscribeEventParams struct {
	SettleVersion uint64
}

// AttachGameParams carries whatever the connection needs to authenticate
// and address the attach call; PlayerAddr identifies the caller to the
// transactor.
type AttachGameParams struct {
	PlayerAddr types.Address
}

// ErrNotConnected is returned by sink operations attempted before Attach
// or after Disconnect/Closed.
var ErrNotConnected = errors.New("transport: not connected")

// Sink is the set of outbound operations the base client performs
// against an attached game.
type Sink interface {
	// AttachGame acquires the event subscription for gameAddr and
	// returns the game account snapshot the caller should build the
	// initial GameContext from. raw is the connection's own encoding of
	// whatever account representation it fetched; callers decode it
	// with whatever client-side account schema applies to their chain.
	AttachGame(ctx context.Context, gameAddr types.Address, params AttachGameParams) (raw []byte, err error)

	// SubmitEvent wraps ev and sends it to the transactor. It never
	// mutates local state; effects apply only once the transactor
	// echoes the event back through the subscription.
	SubmitEvent(ctx context.Context, gameAddr types.Address, ev event.GameEvent) error

	// SubmitMessage sends a plain chat message.
	SubmitMessage(ctx context.Context, gameAddr types.Address, content string) error

	// ExitGame releases the subscription for gameAddr without closing
	// the underlying connection.
	ExitGame(ctx context.Context, gameAddr types.Address) error

	// Disconnect tears down the connection entirely.
	Disconnect(ctx context.Context) error
}

// Connection is the full contract the base client's event loop is built
// against: Sink for outbound calls, plus Subscribe for the inbound
// ordered stream.
type Connection interface {
	Sink

	// Subscribe returns an ordered channel of StreamItems for gameAddr,
	// starting replay at params.SettleVersion. The channel is closed
	// once a Closed state has been delivered or ctx is done.
	Subscribe(ctx context.Context, gameAddr types.Address, params SubscribeEventParams) (<-chan StreamItem, error)
}
