package core

import (
	"sort"
	"time"
)

// entry is one stored value. The same pointer lives in the key map and in
// the expiry index; identity is what index.remove matches on.
type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Duration
}

// expiryIndex keeps entries sorted ascending by expiresAt.
// Entries with equal expiresAt keep insertion order.
//
// Not safe for concurrent use; Cache guards it with its mutex.
type expiryIndex[K comparable, V any] struct {
	entries []*entry[K, V]
}

func (x *expiryIndex[K, V]) len() int {
	return len(x.entries)
}

// insert places e after every entry expiring at or before e.expiresAt.
func (x *expiryIndex[K, V]) insert(e *entry[K, V]) {
	i := sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].expiresAt > e.expiresAt
	})
	x.entries = append(x.entries, nil)
	copy(x.entries[i+1:], x.entries[i:])
	x.entries[i] = e
}

// remove deletes exactly e. It is a no-op if e is not indexed.
func (x *expiryIndex[K, V]) remove(e *entry[K, V]) {
	i := sort.Search(len(x.entries), func(i int) bool {
		return x.entries[i].expiresAt >= e.expiresAt
	})
	for ; i < len(x.entries) && x.entries[i].expiresAt == e.expiresAt; i++ {
		if x.entries[i] != e {
			continue
		}
		copy(x.entries[i:], x.entries[i+1:])
		x.entries[len(x.entries)-1] = nil
		x.entries = x.entries[:len(x.entries)-1]
		return
	}
}

// drainExpired removes and returns, in expiry order, every entry with
// expiresAt <= now. Work is proportional to the number of drained entries.
func (x *expiryIndex[K, V]) drainExpired(now time.Duration) []*entry[K, V] {
	n := 0
	for n < len(x.entries) && x.entries[n].expiresAt <= now {
		n++
	}
	if n == 0 {
		return nil
	}

	drained := make([]*entry[K, V], n)
	copy(drained, x.entries[:n])
	// drop the references held by the backing array
	clear(x.entries[:n])
	x.entries = x.entries[n:]
	return drained
}

// keys returns the indexed keys in expiry order.
func (x *expiryIndex[K, V]) keys() []K {
	out := make([]K, 0, len(x.entries))
	for _, e := range x.entries {
		out = append(out, e.key)
	}
	return out
}

func (x *expiryIndex[K, V]) reset() {
	x.entries = nil
}
