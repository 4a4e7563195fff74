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

// Package memconn is an in-process transport.Connection: pushing frames
// and states in from a test takes the place of a transactor on the wire.
// It exists so the base client's event loop can be exercised without a
// real connection, the way an in-memory mock transport lets protocol
// tests run without a real socket.
package memconn

import (
	"context"
	"sync"

	"github.com/sage-x-project/race/pkg/broadcast"
	"github.com/sage-x-project/race/pkg/event"
	"github.com/sage-x-project/race/pkg/transport"
	"github.com/sage-x-project/race/pkg/types"
)

// SubmittedEvent captures one SubmitEvent call for test assertions.
type SubmittedEvent struct {
	GameAddr types.Address
	Event    event.GameEvent
}

// SubmittedMessage captures one SubmitMessage call for test assertions.
type SubmittedMessage struct {
	GameAddr types.Address
	Content  string
}

// Conn is an in-memory transport.Connection. The zero value is not
// usable; construct with New.
type Conn struct {
	mu      sync.Mutex
	account []byte
	streams map[types.Address]chan transport.StreamItem
	closed  bool

	SubmittedEvents   []SubmittedEvent
	SubmittedMessages []SubmittedMessage
}

var _ transport.Connection = (*Conn)(nil)

// New returns a Conn whose AttachGame calls return account verbatim.
func New(account []byte) *Conn {
	return &Conn{
		account: account,
		streams: make(map[types.Address]chan transport.StreamItem),
	}
}

// AttachGame opens a subscription buffer for gameAddr and returns the
// configured account snapshot.
func (c *Conn) AttachGame(_ context.Context, gameAddr types.Address, _ transport.AttachGameParams) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, transport.ErrNotConnected
	}
	if _, ok := c.streams[gameAddr]; !ok {
		c.streams[gameAddr] = make(chan transport.StreamItem, 64)
	}
	return c.account, nil
}

// Subscribe returns the channel opened by AttachGame. params is ignored;
// a test driving Conn decides what to replay by calling Push directly.
func (c *Conn) Subscribe(_ context.Context, gameAddr types.Address, _ transport.SubscribeEventParams) (<-chan transport.StreamItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.streams[gameAddr]
	if !ok {
		return nil, transport.ErrNotConnected
	}
	return ch, nil
}

// SubmitEvent records ev without touching the stream; the test must
// Push a matching frame back to simulate the transactor echo.
func (c *Conn) SubmitEvent(_ context.Context, gameAddr types.Address, ev event.GameEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrNotConnected
	}
	c.SubmittedEvents = append(c.SubmittedEvents, SubmittedEvent{GameAddr: gameAddr, Event: ev})
	return nil
}

// SubmitMessage records content for test assertions.
func (c *Conn) SubmitMessage(_ context.Context, gameAddr types.Address, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrNotConnected
	}
	c.SubmittedMessages = append(c.SubmittedMessages, SubmittedMessage{GameAddr: gameAddr, Content: content})
	return nil
}

// ExitGame closes and forgets gameAddr's stream.
func (c *Conn) ExitGame(_ context.Context, gameAddr types.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.streams[gameAddr]
	if !ok {
		return transport.ErrNotConnected
	}
	close(ch)
	delete(c.streams, gameAddr)
	return nil
}

// Disconnect closes every open stream after delivering a Closed state.
func (c *Conn) Disconnect(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	for addr, ch := range c.streams {
		ch <- transport.StreamItem{State: transport.Closed}
		close(ch)
		delete(c.streams, addr)
	}
	c.closed = true
	return nil
}

// Push delivers a broadcast frame to gameAddr's subscriber.
func (c *Conn) Push(gameAddr types.Address, f broadcast.Frame) {
	c.mu.Lock()
	ch := c.streams[gameAddr]
	c.mu.Unlock()
	if ch != nil {
		ch <- transport.StreamItem{Frame: f}
	}
}

// PushState delivers a connection-state transition to gameAddr's
// subscriber.
func (c *Conn) PushState(gameAddr types.Address, state transport.ConnState) {
	c.mu.Lock()
	ch := c.streams[gameAddr]
	c.mu.Unlock()
	if ch != nil {
		ch <- transport.StreamItem{State: state}
	}
}
