package core

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmike/ttlcache/internal/lib/hooks"
)

func TestProduce_MissThenHit(t *testing.T) {
	c := Must[string, int](time.Hour, nil)
	var flight sync.Mutex
	calls := 0
	producer := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.produce("k", &flight, 0, producer)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, Stats{Hits: 0, Misses: 1, Size: 1}, c.Stats())

	v, err = c.produce("k", &flight, 0, producer)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Size: 1}, c.Stats())
}

func TestProduce_HitDoesNotTouchFlightLock(t *testing.T) {
	c := Must[string, int](time.Hour, nil)
	_, _ = c.Put("k", 1)

	var flight sync.Mutex
	flight.Lock()
	defer flight.Unlock()

	done := make(chan int, 1)
	go func() {
		v, _ := c.produce("k", &flight, 0, func() (int, error) { return 2, nil })
		done <- v
	}()

	select {
	case v := <-done:
		assert.Equal(t, 1, v)
	case <-time.After(time.Second):
		t.Fatal("cache hit blocked on the flight lock")
	}
}

func TestProduce_EngineUnlockedDuringProducer(t *testing.T) {
	c := Must[string, int](time.Hour, nil)
	var flight sync.Mutex
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = c.produce("slow", &flight, 0, func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	done := make(chan struct{})
	go func() {
		_, _ = c.Put("other", 2)
		_, _, _ = c.Get("other")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Get/Put blocked while a producer was running")
	}
	close(release)
}

func TestProduce_ErrorPropagatesAndReleasesLock(t *testing.T) {
	var logged []error
	c := Must[string, int](time.Hour, &Options{Hooks: &hooks.Hooks{
		LogError: func(err error) { logged = append(logged, err) },
	}})
	var flight sync.Mutex
	boom := errors.New("boom")

	_, err := c.produce("k", &flight, 0, func() (int, error) { return 0, boom })
	assert.Equal(t, boom, err, "producer errors must be returned unchanged")
	assert.Equal(t, Stats{}, c.Stats())
	require.Len(t, logged, 1)

	v, err := c.produce("k", &flight, 0, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestProduce_PanicReleasesLock(t *testing.T) {
	c := Must[string, int](time.Hour, nil)
	var flight sync.Mutex

	_, err := c.produce("k", &flight, 0, func() (int, error) { panic("kaboom") })
	require.ErrorIs(t, err, ErrPanic)
	assert.Contains(t, err.Error(), "kaboom")

	assert.True(t, flight.TryLock(), "flight lock must be released after a panic")
	flight.Unlock()
}

func TestProduce_NilResultIsRejected(t *testing.T) {
	c := Must[string, *int](time.Hour, nil)
	var flight sync.Mutex

	_, err := c.produce("k", &flight, 0, func() (*int, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, uint64(0), c.Stats().Size)
}

func TestProduce_Validation(t *testing.T) {
	c := Must[any, int](time.Hour, nil)
	var flight sync.Mutex
	called := false
	producer := func() (int, error) {
		called = true
		return 1, nil
	}

	_, err := c.produce(nil, &flight, 0, producer)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = c.produce("k", &flight, -time.Second, producer)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.False(t, called)
}

func TestProduce_CustomTTLAndExpiry(t *testing.T) {
	clock := NewManualClock(0)
	c := Must[string, int](time.Hour, &Options{Clock: clock.Now})
	var flight sync.Mutex
	calls := 0
	producer := func() (int, error) {
		calls++
		return calls, nil
	}

	v, _ := c.produce("k", &flight, 5*time.Second, producer)
	assert.Equal(t, 1, v)

	clock.Advance(4 * time.Second)
	v, _ = c.produce("k", &flight, 5*time.Second, producer)
	assert.Equal(t, 1, v)

	clock.Advance(time.Second)
	v, _ = c.produce("k", &flight, 5*time.Second, producer)
	assert.Equal(t, 2, v)
	assert.Equal(t, Stats{Hits: 1, Misses: 2, Size: 1}, c.Stats())
}

func TestProduce_ReplacesConcurrentlyInsertedEntry(t *testing.T) {
	c := Must[string, int](time.Hour, nil)
	var flight sync.Mutex

	v, err := c.produce("k", &flight, 0, func() (int, error) {
		// A direct writer fills the key while the producer runs.
		_, _ = c.Put("k", 1)
		return 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	got, _, _ := c.Get("k")
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, c.index.len(), "replaced entry must leave the index")
}

func TestProduce_SingleFlight(t *testing.T) {
	c := Must[string, int](time.Hour, nil)
	var flight sync.Mutex
	var calls atomic.Int32

	const n = 32
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			v, err := c.produce("k", &flight, 0, func() (int, error) {
				calls.Add(1)
				time.Sleep(50 * time.Millisecond)
				return 99, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, 99, r)
	}
	s := c.Stats()
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, uint64(n-1), s.Hits)
}

func TestProduce_FlightLockIsPerFunctionNotPerKey(t *testing.T) {
	c := Must[string, int](time.Hour, nil)
	var flight sync.Mutex
	var running, maxRunning atomic.Int32

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, _ = c.produce(key, &flight, 0, func() (int, error) {
				cur := running.Add(1)
				for {
					prev := maxRunning.Load()
					if cur <= prev || maxRunning.CompareAndSwap(prev, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return 1, nil
			})
		}(key)
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxRunning.Load())
	assert.Equal(t, uint64(4), c.Stats().Misses)
}
