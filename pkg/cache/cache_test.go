package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), time.Minute))
	got, err := mc.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, mc.Set(ctx, "short", []byte("x"), time.Nanosecond))
	time.Sleep(time.Millisecond)
	_, err = mc.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, mc.Delete(ctx, "a"))
	_, err = mc.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", []byte("1"), 0))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", []byte("2"), 0))
	time.Sleep(time.Millisecond)
	_, err := mc.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, mc.Set(ctx, "c", []byte("3"), 0))

	assert.Equal(t, 2, mc.Len())
	_, err = mc.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = mc.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	buf := []byte("abc")
	require.NoError(t, mc.Set(ctx, "k", buf, 0))
	buf[0] = 'z'
	got, err := mc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

type failingCache struct{ *MemoryCache }

func (f *failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("l2 down")
}

func TestLayeredCache_ReadThroughAndWriteThrough(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2)
	defer lc.Close()

	require.NoError(t, lc.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := l2.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))

	// value only in L2 is promoted on read
	require.NoError(t, l2.Set(ctx, "only-l2", []byte("w"), time.Minute))
	got, err = lc.Get(ctx, "only-l2")
	require.NoError(t, err)
	assert.Equal(t, "w", string(got))
	require.NoError(t, l2.Delete(ctx, "only-l2"))
	got, err = lc.Get(ctx, "only-l2")
	require.NoError(t, err)
	assert.Equal(t, "w", string(got))

	_, err = lc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLayeredCache_L2FailureIsNotCachedLocally(t *testing.T) {
	ctx := context.Background()
	l2 := &failingCache{MemoryCache: NewMemoryCache()}
	defer l2.Close()
	lc := NewLayeredCache(l2)

	assert.Error(t, lc.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := lc.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	type point struct{ X, Y float64 }
	require.NoError(t, SetJSON(ctx, mc, "p", point{1, 2}, 0))
	got, err := GetJSON[point](ctx, mc, "p")
	require.NoError(t, err)
	assert.Equal(t, point{1, 2}, got)

	_, err = GetJSON[point](ctx, mc, "nope")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
