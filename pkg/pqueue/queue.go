package pqueue

import (
	"math"
	"sort"
)

func WithOrderAsc() Option {
	return func(q *Queue) {
		q.order = orderAsc
	}
}

func WithOrderDesc() Option {
	return func(q *Queue) {
		q.order = orderDesc
	}
}

// WithCap bounds the queue: once full, pushing drops the worst item.
func WithCap(size uint) Option {
	return func(q *Queue) {
		q.cap = int(size)
	}
}

type Option func(*Queue)

type order uint8

const (
	orderAsc order = iota
	orderDesc
)

type Item struct {
	Index int
	Prior float64
}

func New(opts ...Option) *Queue {
	q := &Queue{order: orderAsc, cap: -1}
	for _, opt := range opts {
		opt(q)
	}
	if q.cap > 0 {
		q.items = make([]Item, 0, q.cap)
	}
	return q
}

// Queue keeps items sorted by (priority, index). Ties on priority are always
// broken by the smaller index first, regardless of the priority order.
type Queue struct {
	order order
	cap   int
	items []Item
}

func (q *Queue) before(a, b Item) bool {
	if a.Prior != b.Prior {
		if q.order == orderAsc {
			return a.Prior < b.Prior
		}
		return a.Prior > b.Prior
	}
	return a.Index < b.Index
}

// Push inserts an item keeping the order. NaN priorities are ranked last.
func (q *Queue) Push(idx int, priority float64) {
	if math.IsNaN(priority) {
		priority = math.Inf(1)
		if q.order == orderDesc {
			priority = math.Inf(-1)
		}
	}
	it := Item{Index: idx, Prior: priority}
	if q.cap == 0 {
		return
	}
	if q.cap > 0 && len(q.items) == q.cap && !q.before(it, q.items[len(q.items)-1]) {
		return
	}

	pos := sort.Search(len(q.items), func(i int) bool {
		return q.before(it, q.items[i])
	})
	if q.cap < 0 || len(q.items) < q.cap {
		q.items = append(q.items, Item{})
	}
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = it
}

// PopAll returns the ordered items and empties the queue.
func (q *Queue) PopAll() []Item {
	pulled := make([]Item, len(q.items))
	copy(pulled, q.items)
	q.items = q.items[:0]
	return pulled
}

func (q *Queue) Head() (Item, bool) {
	if len(q.items) == 0 {
		return Item{}, false
	}
	x := q.items[0]
	q.items = q.items[1:]
	return x, true
}

func (q *Queue) Tail() (Item, bool) {
	l := len(q.items) - 1
	if l < 0 {
		return Item{}, false
	}
	x := q.items[l]
	q.items = q.items[:l]
	return x, true
}

func (q *Queue) Reset() { q.items = q.items[:0] }

func (q *Queue) Cap() int { return q.cap }

func (q *Queue) Len() int { return len(q.items) }

func (q *Queue) Seek(idx int) (int, float64) {
	it := q.items[idx]
	return it.Index, it.Prior
}
