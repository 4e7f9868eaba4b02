// Package livequery keeps query results live. It has two independent
// invalidation channels: a Tracker that fans out table-level change marks
// from the single-row write path, and a Notifier broadcast for bulk writes
// that bypass that path. Both feed the same re-run loop in Subscription.
package livequery

import (
	"sync"
)

// Tracker fans out change signals keyed by table name. Watchers receive on
// a buffered channel of size one; a mark arriving while a previous one is
// still pending is dropped, which coalesces bursts into a single signal.
type Tracker struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[string]map[int64]chan struct{}
}

func NewTracker() *Tracker {
	return &Tracker{subs: make(map[string]map[int64]chan struct{})}
}

// MarkChanged signals every watcher of each named table. It never blocks.
func (t *Tracker) MarkChanged(tables ...string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	notified := make(map[chan struct{}]bool)
	for _, table := range tables {
		for _, ch := range t.subs[table] {
			if notified[ch] {
				continue
			}
			notified[ch] = true
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// Watch registers interest in a set of tables. The returned channel carries
// at most one pending signal; the cancel func removes the registration.
func (t *Tracker) Watch(tables ...string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	t.mu.Lock()
	t.nextID++
	id := t.nextID
	for _, table := range tables {
		if t.subs[table] == nil {
			t.subs[table] = make(map[int64]chan struct{})
		}
		t.subs[table][id] = ch
	}
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for _, table := range tables {
			delete(t.subs[table], id)
		}
	}
	return ch, cancel
}
