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

// Package wsconn is a WebSocket-backed transport.Connection, built the
// way a websocket-backed message transport typically is: a persistent gorilla
// connection, a reader goroutine demultiplexing inbound envelopes, and
// pending-request channels keyed by game address for the calls that
// need an acknowledgement.
package wsconn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sage-x-project/race/pkg/broadcast"
	"github.com/sage-x-project/race/pkg/event"
	"github.com/sage-x-project/race/pkg/transport"
	"github.com/sage-x-project/race/pkg/types"
)

// envelopeKind tags the wire envelope exchanged over the socket.
type envelopeKind uint8

const (
	kindAttach envelopeKind = iota
	kindAttachAck
	kindSubscribe
	kindSubmitEvent
	kindSubmitMessage
	kindExit
	kindDisconnect
	kindFrame
	kindState
	kindError
)

// envelope is the JSON wire format multiplexing every call and every
// pushed frame/state over one socket, so one connection can carry
// every game this node has attached to.
type envelope struct {
	Kind     envelopeKind `json:"kind"`
	GameAddr string       `json:"game_addr,omitempty"`
	Payload  []byte       `json:"payload,omitempty"`
	State    uint8        `json:"state,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// Conn is a WebSocket transport.Connection. The zero value is not
// usable; construct with New.
type Conn struct {
	url          string
	dialTimeout  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn

	connMu    sync.RWMutex
	connected bool

	streamsMu sync.Mutex
	streams   map[types.Address]chan transport.StreamItem

	attachMu  sync.Mutex
	attachAck map[types.Address]chan envelope
}

var _ transport.Connection = (*Conn)(nil)

// New returns a Conn dialing url on first use, with conservative
// default 30s/60s/30s dial/read/write timeouts.
func New(url string) *Conn {
	return &Conn{
		url:          url,
		dialTimeout:  30 * time.Second,
		readTimeout:  60 * time.Second,
		writeTimeout: 30 * time.Second,
		streams:      make(map[types.Address]chan transport.StreamItem),
		attachAck:    make(map[types.Address]chan envelope),
	}
}

// Connect dials the WebSocket and starts the demultiplexing reader.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	dialer := &websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("wsconn: dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("wsconn: dial failed: %w", err)
	}

	c.conn = conn
	c.setConnected(true)
	go c.readLoop()
	return nil
}

func (c *Conn) ensureConnected(ctx context.Context) error {
	if c.isConnected() {
		return nil
	}
	return c.Connect(ctx)
}

func (c *Conn) isConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

func (c *Conn) setConnected(v bool) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.connected = v
}

func (c *Conn) write(env envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return transport.ErrNotConnected
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return fmt.Errorf("wsconn: set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(env); err != nil {
		c.setConnected(false)
		return fmt.Errorf("wsconn: write envelope: %w", err)
	}
	return nil
}

// readLoop demultiplexes inbound envelopes to either a pending attach
// ack or the stream channel for the envelope's game address.
func (c *Conn) readLoop() {
	defer c.setConnected(false)
	for {
		if !c.isConnected() {
			return
		}
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return
		}

		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}

		switch env.Kind {
		case kindAttachAck, kindError:
			c.attachMu.Lock()
			ch, ok := c.attachAck[types.Address(env.GameAddr)]
			c.attachMu.Unlock()
			if ok {
				select {
				case ch <- env:
				default:
				}
			}
		case kindFrame:
			f, err := broadcast.Unmarshal(env.Payload)
			if err != nil {
				continue
			}
			c.deliver(types.Address(env.GameAddr), transport.StreamItem{Frame: f})
		case kindState:
			c.deliver(types.Address(env.GameAddr), transport.StreamItem{State: transport.ConnState(env.State)})
		}
	}
}

func (c *Conn) deliver(gameAddr types.Address, item transport.StreamItem) {
	c.streamsMu.Lock()
	ch := c.streams[gameAddr]
	c.streamsMu.Unlock()
	if ch != nil {
		ch <- item
	}
}

// AttachGame sends an attach envelope and blocks for the matching ack,
// which carries the game account snapshot as its payload.
func (c *Conn) AttachGame(ctx context.Context, gameAddr types.Address, params transport.AttachGameParams) ([]byte, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	ack := make(chan envelope, 1)
	c.attachMu.Lock()
	c.attachAck[gameAddr] = ack
	c.attachMu.Unlock()
	defer func() {
		c.attachMu.Lock()
		delete(c.attachAck, gameAddr)
		c.attachMu.Unlock()
	}()

	c.streamsMu.Lock()
	if _, ok := c.streams[gameAddr]; !ok {
		c.streams[gameAddr] = make(chan transport.StreamItem, 64)
	}
	c.streamsMu.Unlock()

	if err := c.write(envelope{Kind: kindAttach, GameAddr: string(gameAddr), Payload: []byte(params.PlayerAddr)}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case env := <-ack:
		if env.Kind == kindError {
			return nil, fmt.Errorf("wsconn: attach %s: %s", gameAddr, env.Error)
		}
		return env.Payload, nil
	case <-time.After(c.readTimeout):
		return nil, fmt.Errorf("wsconn: attach %s: timeout", gameAddr)
	}
}

// Subscribe returns the stream channel AttachGame opened for gameAddr,
// after asking the peer to (re)start replay at params.SettleVersion.
func (c *Conn) Subscribe(ctx context.Context, gameAddr types.Address, params transport.SubscribeEventParams) (<-chan transport.StreamItem, error) {
	c.streamsMu.Lock()
	ch, ok := c.streams[gameAddr]
	c.streamsMu.Unlock()
	if !ok {
		return nil, transport.ErrNotConnected
	}

	payload := make([]byte, 8)
	for i := 0; i < 8; i++ {
		payload[i] = byte(params.SettleVersion >> (8 * i))
	}
	if err := c.write(envelope{Kind: kindSubscribe, GameAddr: string(gameAddr), Payload: payload}); err != nil {
		return nil, err
	}
	return ch, nil
}

// SubmitEvent marshals ev and sends it to the peer.
func (c *Conn) SubmitEvent(ctx context.Context, gameAddr types.Address, ev event.GameEvent) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	raw, err := event.Marshal(ev)
	if err != nil {
		return err
	}
	return c.write(envelope{Kind: kindSubmitEvent, GameAddr: string(gameAddr), Payload: raw})
}

// SubmitMessage sends a plain chat message.
func (c *Conn) SubmitMessage(ctx context.Context, gameAddr types.Address, content string) error {
	if err := c.ensureConnected(ctx); err != nil {
		return err
	}
	return c.write(envelope{Kind: kindSubmitMessage, GameAddr: string(gameAddr), Payload: []byte(content)})
}

// ExitGame tells the peer to release the subscription and forgets the
// local stream channel.
func (c *Conn) ExitGame(ctx context.Context, gameAddr types.Address) error {
	if err := c.write(envelope{Kind: kindExit, GameAddr: string(gameAddr)}); err != nil {
		return err
	}
	c.streamsMu.Lock()
	if ch, ok := c.streams[gameAddr]; ok {
		close(ch)
		delete(c.streams, gameAddr)
	}
	c.streamsMu.Unlock()
	return nil
}

// Disconnect closes the WebSocket connection entirely.
func (c *Conn) Disconnect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	c.setConnected(false)

	c.streamsMu.Lock()
	for addr, ch := range c.streams {
		close(ch)
		delete(c.streams, addr)
	}
	c.streamsMu.Unlock()
	return err
}
