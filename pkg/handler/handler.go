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

// Package handler defines the contract the effect bridge drives: an
// opaque bytecode module that turns an Effect-in plus a payload into an
// Effect-out. The bundle's actual VM is swappable; see
// pkg/handler/wasmhost for the wazero-backed implementation.
package handler

import (
	"context"
	"fmt"

	"github.com/sage-x-project/race/pkg/effect"
)

// Sentinel is a return of 2 or less from init_state/handle_event that
// signals a bridge-level failure rather than a new effect size.
type Sentinel int32

const (
	SentinelSerializeFailed          Sentinel = 0
	SentinelDeserializeEffectFailed  Sentinel = 1
	SentinelDeserializePayloadFailed Sentinel = 2
)

func (s Sentinel) Error() string {
	switch s {
	case SentinelSerializeFailed:
		return "handler: serialize failed"
	case SentinelDeserializeEffectFailed:
		return "handler: deserialize effect failed"
	case SentinelDeserializePayloadFailed:
		return "handler: deserialize payload failed"
	default:
		return fmt.Sprintf("handler: unknown sentinel %d", int32(s))
	}
}

// BytecodeHandler is the calling convention: build an
// Effect-in from the context, invoke the handler with a payload, get an
// Effect-out back.
type BytecodeHandler interface {
	// InitState invokes the bundle's init_state entrypoint with the
	// game's initAccount payload.
	InitState(ctx context.Context, effectIn *effect.Effect, initData []byte) (*effect.Effect, error)
	// HandleEvent invokes the bundle's handle_event entrypoint with one
	// serialized GameEvent.
	HandleEvent(ctx context.Context, effectIn *effect.Effect, eventData []byte) (*effect.Effect, error)
	// Close releases any host resources (e.g. a wazero runtime).
	Close(ctx context.Context) error
}
