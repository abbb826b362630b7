package pools

import (
	"errors"
	"sync/atomic"
)

// ErrNotActive is returned when releasing a slot that is not currently acquired.
var ErrNotActive = errors.New("slot is not active")

// Poolable defines the interface for objects held by a SlotPool
type Poolable interface {
	// Reset clears all per-connection state before the object is handed out again.
	Reset()
	// Close releases the OS resources the object owns (socket, open file).
	Close() error
}

// SlotPool is a fixed-capacity slab of reusable objects.
//
// Free slots live on an index stack, active slots in an ordered index list.
// The pool never grows: once every slot is active Acquire fails and the caller
// is expected to turn the work away. It is not safe for concurrent use apart
// from Stats, which only reads atomic counters.
type SlotPool[T Poolable] struct {
	items  []T
	inUse  []bool
	free   []int
	active []int
	walk   []int

	acquired atomic.Uint64
	released atomic.Uint64
	rejected atomic.Uint64
}

// PoolStats is a point-in-time copy of the pool counters
type PoolStats struct {
	Capacity int    `json:"capacity"`
	Active   int    `json:"active"`
	Acquired uint64 `json:"acquired"`
	Released uint64 `json:"released"`
	Rejected uint64 `json:"rejected"`
}

// NewSlotPool creates a pool holding capacity objects built by newFunc
func NewSlotPool[T Poolable](capacity int, newFunc func() T) *SlotPool[T] {
	if capacity < 1 {
		capacity = 1
	}

	p := &SlotPool[T]{
		items:  make([]T, capacity),
		inUse:  make([]bool, capacity),
		free:   make([]int, 0, capacity),
		active: make([]int, 0, capacity),
		walk:   make([]int, 0, capacity),
	}

	// Push in reverse so the first Acquire hands out slot 0
	for i := capacity - 1; i >= 0; i-- {
		p.items[i] = newFunc()
		p.free = append(p.free, i)
	}

	return p
}

// Acquire takes a free slot, resets it and marks it active.
// ok is false when the pool is exhausted.
func (p *SlotPool[T]) Acquire() (id int, item T, ok bool) {
	if len(p.free) == 0 {
		var zero T
		return -1, zero, false
	}

	id = p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	item = p.items[id]
	item.Reset()

	p.inUse[id] = true
	p.active = append(p.active, id)
	p.acquired.Add(1)

	return id, item, true
}

// Release closes the slot's resources and returns it to the free stack.
// Releasing a slot that is not active returns ErrNotActive and touches nothing.
func (p *SlotPool[T]) Release(id int) error {
	if id < 0 || id >= len(p.items) || !p.inUse[id] {
		return ErrNotActive
	}

	for i, a := range p.active {
		if a == id {
			p.active = append(p.active[:i], p.active[i+1:]...)
			break
		}
	}

	item := p.items[id]
	err := item.Close()
	item.Reset()

	p.inUse[id] = false
	p.free = append(p.free, id)
	p.released.Add(1)

	return err
}

// Reject records a connection turned away because the pool was exhausted
func (p *SlotPool[T]) Reject() {
	p.rejected.Add(1)
}

// ForEachActive calls fn for every active slot in active-list order.
// The walk runs over a snapshot, so fn may release the slot it was given.
// Slots released earlier in the same walk are skipped.
func (p *SlotPool[T]) ForEachActive(fn func(id int, item T) bool) {
	p.walk = append(p.walk[:0], p.active...)
	for _, id := range p.walk {
		if !p.inUse[id] {
			continue
		}
		if !fn(id, p.items[id]) {
			return
		}
	}
}

// Len returns the number of active slots
func (p *SlotPool[T]) Len() int {
	return len(p.active)
}

// Cap returns the fixed capacity of the pool
func (p *SlotPool[T]) Cap() int {
	return len(p.items)
}

// Stats returns pool statistics
func (p *SlotPool[T]) Stats() PoolStats {
	acquired := p.acquired.Load()
	released := p.released.Load()

	return PoolStats{
		Capacity: len(p.items),
		Active:   int(acquired - released),
		Acquired: acquired,
		Released: released,
		Rejected: p.rejected.Load(),
	}
}
