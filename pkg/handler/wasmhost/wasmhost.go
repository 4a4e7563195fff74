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

// Package wasmhost hosts an immutable game bundle as a WASM module via
// wazero, implementing handler.BytecodeHandler's calling convention:
// write `[effect-in || payload]` at offset 1 of the
// module's exported linear memory, invoke init_state/handle_event,
// interpret a return of 2 or less as a handler.Sentinel, otherwise read
// that many bytes back from offset 1 as the serialized Effect-out.
package wasmhost

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/sage-x-project/race/internal/raceerr"
	"github.com/sage-x-project/race/pkg/effect"
	"github.com/sage-x-project/race/pkg/handler"
)

// effectPayloadOffset is the fixed offset the bundle's ABI writes and
// reads records at, leaving the first byte of linear memory free for
// the host's own bookkeeping.
const effectPayloadOffset = 1

// Host hosts one immutable bundle for the lifetime of an attached game.
type Host struct {
	runtime  wazero.Runtime
	module   api.Module
	memory   api.Memory
	initFn   api.Function
	handleFn api.Function
}

// Load instantiates bundle (a compiled WASM module) and resolves its
// init_state/handle_event exports and memory.
func Load(ctx context.Context, bundle []byte) (*Host, error) {
	runtime := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("wasmhost: instantiate wasi: %w", err)
	}

	module, err := runtime.Instantiate(ctx, bundle)
	if err != nil {
		runtime.Close(ctx)
		return nil, fmt.Errorf("wasmhost: instantiate bundle: %w", err)
	}

	mem := module.Memory()
	if mem == nil {
		runtime.Close(ctx)
		return nil, raceerr.New(raceerr.KindInitDataInvalid, "bundle exports no memory", nil)
	}
	initFn := module.ExportedFunction("init_state")
	handleFn := module.ExportedFunction("handle_event")
	if initFn == nil || handleFn == nil {
		runtime.Close(ctx)
		return nil, raceerr.New(raceerr.KindInitDataInvalid, "bundle missing init_state/handle_event", nil)
	}

	return &Host{runtime: runtime, module: module, memory: mem, initFn: initFn, handleFn: handleFn}, nil
}

// Close tears down the wazero runtime and everything it owns.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

func (h *Host) call(ctx context.Context, fn api.Function, effIn *effect.Effect, payload []byte) (*effect.Effect, error) {
	effBytes, err := effect.Marshal(effIn)
	if err != nil {
		return nil, fmt.Errorf("wasmhost: marshal effect-in: %w", err)
	}

	combined := append(append([]byte(nil), effBytes...), payload...)
	if !h.memory.Write(effectPayloadOffset, combined) {
		return nil, raceerr.New(raceerr.KindInitDataInvalid, "linear memory too small for effect+payload", nil)
	}

	results, err := fn.Call(ctx, uint64(len(effBytes)), uint64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("wasmhost: call: %w", err)
	}
	if len(results) != 1 {
		return nil, raceerr.New(raceerr.KindInitDataInvalid, "handler returned no size", nil)
	}

	newSize := int32(results[0])
	if newSize <= int32(handler.SentinelDeserializePayloadFailed) {
		return nil, handler.Sentinel(newSize)
	}

	out, ok := h.memory.Read(effectPayloadOffset, uint32(newSize))
	if !ok {
		return nil, raceerr.New(raceerr.KindInitDataInvalid, "effect-out read past linear memory", nil)
	}
	return effect.Unmarshal(out)
}

// InitState invokes the bundle's init_state entrypoint.
func (h *Host) InitState(ctx context.Context, effIn *effect.Effect, initData []byte) (*effect.Effect, error) {
	return h.call(ctx, h.initFn, effIn, initData)
}

// HandleEvent invokes the bundle's handle_event entrypoint.
func (h *Host) HandleEvent(ctx context.Context, effIn *effect.Effect, eventData []byte) (*effect.Effect, error) {
	return h.call(ctx, h.handleFn, effIn, eventData)
}

var _ handler.BytecodeHandler = (*Host)(nil)
