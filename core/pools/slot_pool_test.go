package pools

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeItem struct {
	resets   int
	closes   int
	closeErr error
}

func (f *fakeItem) Reset() { f.resets++ }

func (f *fakeItem) Close() error {
	f.closes++
	return f.closeErr
}

func newFakePool(capacity int) *SlotPool[*fakeItem] {
	return NewSlotPool(capacity, func() *fakeItem { return &fakeItem{} })
}

func TestSlotPool_AcquireUntilExhausted(t *testing.T) {
	pool := newFakePool(2)

	id1, item1, ok := pool.Acquire()
	require.True(t, ok)
	id2, item2, ok := pool.Acquire()
	require.True(t, ok)

	assert.NotEqual(t, id1, id2)
	assert.NotSame(t, item1, item2)
	assert.Equal(t, 1, item1.resets)
	assert.Equal(t, 2, pool.Len())

	_, _, ok = pool.Acquire()
	assert.False(t, ok, "third acquire must fail with capacity 2")

	require.NoError(t, pool.Release(id1))
	id3, item3, ok := pool.Acquire()
	require.True(t, ok)
	assert.Equal(t, id1, id3)
	assert.Same(t, item1, item3)
}

func TestSlotPool_ReleaseIsGuarded(t *testing.T) {
	pool := newFakePool(1)

	id, item, ok := pool.Acquire()
	require.True(t, ok)

	require.NoError(t, pool.Release(id))
	assert.Equal(t, 1, item.closes)

	err := pool.Release(id)
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Equal(t, 1, item.closes, "second release must not close again")

	assert.ErrorIs(t, pool.Release(-1), ErrNotActive)
	assert.ErrorIs(t, pool.Release(5), ErrNotActive)

	stats := pool.Stats()
	assert.Equal(t, uint64(1), stats.Acquired)
	assert.Equal(t, uint64(1), stats.Released)
	assert.Equal(t, 0, stats.Active)
}

func TestSlotPool_ReleaseReturnsCloseError(t *testing.T) {
	pool := newFakePool(1)
	id, item, _ := pool.Acquire()
	item.closeErr = errors.New("boom")

	err := pool.Release(id)
	require.Error(t, err)

	// The slot is free regardless of the close error
	_, _, ok := pool.Acquire()
	assert.True(t, ok)
}

func TestSlotPool_ForEachActive(t *testing.T) {
	pool := newFakePool(4)

	ids := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		id, _, ok := pool.Acquire()
		require.True(t, ok)
		ids = append(ids, id)
	}

	t.Run("visits in active order", func(t *testing.T) {
		var seen []int
		pool.ForEachActive(func(id int, _ *fakeItem) bool {
			seen = append(seen, id)
			return true
		})
		assert.Equal(t, ids, seen)
	})

	t.Run("release during walk", func(t *testing.T) {
		var seen []int
		pool.ForEachActive(func(id int, _ *fakeItem) bool {
			seen = append(seen, id)
			require.NoError(t, pool.Release(id))
			return true
		})
		assert.Equal(t, ids, seen)
		assert.Equal(t, 0, pool.Len())
	})

	t.Run("stop early", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, _, ok := pool.Acquire()
			require.True(t, ok)
		}
		calls := 0
		pool.ForEachActive(func(int, *fakeItem) bool {
			calls++
			return false
		})
		assert.Equal(t, 1, calls)
	})
}

func TestSlotPool_Reject(t *testing.T) {
	pool := newFakePool(1)
	pool.Reject()
	pool.Reject()

	assert.Equal(t, uint64(2), pool.Stats().Rejected)
	assert.Equal(t, 1, pool.Cap())
}

func BenchmarkSlotPool_AcquireRelease(b *testing.B) {
	pool := newFakePool(64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id, _, _ := pool.Acquire()
		_ = pool.Release(id)
	}
}
