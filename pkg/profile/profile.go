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

// Package profile is the load-profile collaborator: given a player
// address, fetch and cache a PlayerProfile,
// deduping concurrent loads for the same address and invoking a
// callback as each resolves. It runs as a concurrent task sharing no
// mutable state with the event loop, the way an identity-resolution
// server resolves a sender's DID through a singleflight.Group guarding
// its own resolver cache.
package profile

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sage-x-project/race/internal/metrics"
	"github.com/sage-x-project/race/pkg/codec"
	"github.com/sage-x-project/race/pkg/types"
)

// Profile is the wire shape of PlayerProfile.
type Profile struct {
	Addr types.Address
	Nick string
	Pfp  *string
}

func (p Profile) EncodeTo(e *codec.Encoder) error {
	if err := e.WriteString(string(p.Addr)); err != nil {
		return err
	}
	if err := e.WriteString(p.Nick); err != nil {
		return err
	}
	return writeOptionalString(e, p.Pfp)
}

func (p *Profile) DecodeFrom(d *codec.Decoder) error {
	addr, err := d.ReadString()
	if err != nil {
		return err
	}
	nick, err := d.ReadString()
	if err != nil {
		return err
	}
	pfp, err := readOptionalString(d)
	if err != nil {
		return err
	}
	p.Addr, p.Nick, p.Pfp = types.Address(addr), nick, pfp
	return nil
}

func writeOptionalString(e *codec.Encoder, v *string) error {
	if v == nil {
		return e.WriteU8(0)
	}
	if err := e.WriteU8(1); err != nil {
		return err
	}
	return e.WriteString(*v)
}

func readOptionalString(d *codec.Decoder) (*string, error) {
	tag, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		return nil, nil
	}
	s, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Marshal serializes a Profile.
func Marshal(p Profile) ([]byte, error) { return codec.Marshal(p) }

// Unmarshal deserializes a Profile.
func Unmarshal(data []byte) (Profile, error) {
	var p Profile
	err := codec.Unmarshal(data, &p)
	return p, err
}

// Fetcher is the external collaborator this package consumes; the
// actual profile/NFT metadata backend is out of scope, so callers plug
// in whatever fetches it.
type Fetcher interface {
	Fetch(ctx context.Context, addr types.Address) (Profile, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, addr types.Address) (Profile, error)

func (f FetcherFunc) Fetch(ctx context.Context, addr types.Address) (Profile, error) { return f(ctx, addr) }

// Loader caches resolved profiles by address and dedupes concurrent
// loads of the same address. A failed fetch is not cached, so the next
// Load for that address retries.
type Loader struct {
	fetcher Fetcher
	onReady func(id string, p Profile)

	sf singleflight.Group

	mu    sync.RWMutex
	cache map[types.Address]Profile
}

// NewLoader returns a Loader fetching through fetcher; onReady is
// invoked, from a goroutine, as each requested profile resolves.
func NewLoader(fetcher Fetcher, onReady func(id string, p Profile)) *Loader {
	return &Loader{
		fetcher: fetcher,
		onReady: onReady,
		cache:   make(map[types.Address]Profile),
	}
}

// Load triggers a profile fetch for addr tagged with id (typically the
// requesting player's address, threaded through to onReady so the base
// client knows whose profile resolved). A cache hit invokes onReady
// synchronously without refetching; a cache miss fetches in a new
// goroutine, deduped with any other in-flight Load for the same addr.
func (l *Loader) Load(id string, addr types.Address) {
	l.mu.RLock()
	cached, ok := l.cache[addr]
	l.mu.RUnlock()
	if ok {
		metrics.ProfileLoads.WithLabelValues("hit").Inc()
		l.onReady(id, cached)
		return
	}
	metrics.ProfileLoads.WithLabelValues("miss").Inc()

	go func() {
		start := time.Now()
		v, err, _ := l.sf.Do(string(addr), func() (any, error) {
			return l.fetcher.Fetch(context.Background(), addr)
		})
		metrics.ProfileLoadDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return
		}
		p := v.(Profile)
		l.mu.Lock()
		l.cache[addr] = p
		l.mu.Unlock()
		l.onReady(id, p)
	}()
}

// Cached returns the cached profile for addr, if any.
func (l *Loader) Cached(addr types.Address) (Profile, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.cache[addr]
	return p, ok
}
