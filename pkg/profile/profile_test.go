package profile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/race/pkg/types"
)

func TestProfileSerializationReferenceVector(t *testing.T) {
	p := Profile{Addr: "an addr", Nick: "Alice", Pfp: nil}
	data, err := Marshal(p)
	require.NoError(t, err)
	want := []byte{7, 0, 0, 0, 'a', 'n', ' ', 'a', 'd', 'd', 'r', 5, 0, 0, 0, 'A', 'l', 'i', 'c', 'e', 0}
	assert.Equal(t, want, data)
}

func TestProfileRoundTripWithPfp(t *testing.T) {
	pfp := "ipfs://cid"
	p := Profile{Addr: "alice", Nick: "A", Pfp: &pfp}
	data, err := Marshal(p)
	require.NoError(t, err)
	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, p, out)
}

func TestLoaderCachesSecondLoadWithoutRefetch(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	fetcher := FetcherFunc(func(ctx context.Context, addr types.Address) (Profile, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return Profile{Addr: addr, Nick: "bob"}, nil
	})

	results := make(chan Profile, 2)
	loader := NewLoader(fetcher, func(id string, p Profile) { results <- p })

	loader.Load("req-1", "alice")
	first := <-results
	assert.Equal(t, Profile{Addr: "alice", Nick: "bob"}, first)

	loader.Load("req-2", "alice")
	second := <-results
	assert.Equal(t, first, second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(1), calls)
}

func TestLoaderRetriesAfterFailure(t *testing.T) {
	var attempt int32
	fetcher := FetcherFunc(func(ctx context.Context, addr types.Address) (Profile, error) {
		attempt++
		if attempt == 1 {
			return Profile{}, errors.New("backend down")
		}
		return Profile{Addr: addr, Nick: "ok"}, nil
	})

	results := make(chan Profile, 1)
	loader := NewLoader(fetcher, func(id string, p Profile) { results <- p })

	loader.Load("req-1", "alice")
	select {
	case <-results:
		t.Fatal("onReady should not fire on fetch failure")
	case <-time.After(50 * time.Millisecond):
	}

	loader.Load("req-2", "alice")
	p := <-results
	assert.Equal(t, Profile{Addr: "alice", Nick: "ok"}, p)
	assert.EqualValues(t, 2, attempt)
}

func TestLoaderDedupesConcurrentLoads(t *testing.T) {
	var calls int32
	var mu sync.Mutex
	release := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, addr types.Address) (Profile, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return Profile{Addr: addr, Nick: "x"}, nil
	})

	results := make(chan Profile, 2)
	loader := NewLoader(fetcher, func(id string, p Profile) { results <- p })

	loader.Load("a", "shared")
	loader.Load("b", "shared")
	close(release)

	<-results
	<-results

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(1), calls)
}
