package core

import "container/list"

// txDedup is an LRU set of recently applied transaction IDs. Resubmissions
// of an already-applied transaction must not run twice.
//
// Not thread-safe. Only the single-threaded processor touches it.
type txDedup struct {
	capacity int
	cache    map[string]*list.Element
	order    *list.List

	evictions int64
}

func newTxDedup(capacity int) *txDedup {
	return &txDedup{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Contains reports whether txID was already applied, promoting it.
func (d *txDedup) Contains(txID string) bool {
	elem, ok := d.cache[txID]
	if ok {
		d.order.MoveToFront(elem)
	}
	return ok
}

// Add records txID as applied, evicting the least recently seen entry when
// over capacity.
func (d *txDedup) Add(txID string) {
	if elem, ok := d.cache[txID]; ok {
		d.order.MoveToFront(elem)
		return
	}
	d.cache[txID] = d.order.PushFront(txID)
	if d.order.Len() > d.capacity {
		oldest := d.order.Back()
		d.order.Remove(oldest)
		delete(d.cache, oldest.Value.(string))
		d.evictions++
	}
}

// Evictions returns the running eviction count, for metrics.
func (d *txDedup) Evictions() int64 {
	return d.evictions
}
