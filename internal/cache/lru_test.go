package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewLRUCache[string](10, time.Minute).WithClock(clock.Now)
	c.Set("short", "x")
	c.SetWithTTL("long", "y", time.Hour)

	clock.Advance(time.Minute)
	_, ok := c.Get("short")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Size())

	clock.Advance(time.Hour)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewLRUStore(10, time.Minute)

	buf := []byte("500")
	require.NoError(t, s.Set(ctx, "k", buf, 0))
	buf[0] = '9'

	got, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "500", string(got))

	require.NoError(t, s.Delete(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManagerSweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	a := NewLRUCache[int](10, time.Second).WithClock(clock.Now)
	b := NewLRUCache[int](10, time.Second).WithClock(clock.Now)
	a.Set("x", 1)
	b.Set("y", 2)
	b.SetWithTTL("z", 3, time.Hour)

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)
	clock.Advance(2 * time.Second)

	assert.Equal(t, 2, m.Sweep())
	m.Stop()
}

func TestManagerRunStops(t *testing.T) {
	m := NewManager(nil)
	done := make(chan struct{})
	go func() {
		_ = m.Run(context.Background(), time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
