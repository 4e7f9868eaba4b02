package livequery

import (
	"sync"
)

// Notifier is the manual escape hatch for mutations the Tracker cannot see,
// such as chunked bulk updates. Broadcast reaches every open subscription
// regardless of its table dependency set.
type Notifier struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[int64]chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int64]chan struct{})}
}

// Broadcast signals all subscribers without blocking; a pending undelivered
// signal absorbs the new one.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.subs[id] = ch
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
	return ch, cancel
}
