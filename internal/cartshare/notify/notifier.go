// Package notify is the in-process change feed. Every committed write to a
// record publishes a full snapshot under the record's key, and every open
// subscription on that key receives it. Delivery is FIFO per key; there is
// no ordering across keys.
package notify

import "sync"

// Versioned is implemented by snapshots that carry the record's commit-order
// version. Subscriptions use it to drop a snapshot that was read before one
// they already delivered, so a feed may repeat a version but never go
// backwards.
type Versioned interface {
	SnapshotVersion() int64
}

// GroupKey returns the feed key for a group record.
func GroupKey(groupID string) string { return "groups/" + groupID }

// UserKey returns the feed key for a user record.
func UserKey(userID string) string { return "users/" + userID }

// Notifier fans record snapshots out to subscribers. A slow subscriber never
// blocks a writer: each subscription buffers pending snapshots and drains
// them from its own goroutine.
type Notifier struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	taps   []func(key string, snapshot any)
	closed bool
}

func New() *Notifier {
	return &Notifier{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers for snapshots of one record key. The returned
// subscription delivers snapshots in publish order until Close is called.
func (n *Notifier) Subscribe(key string) *Subscription {
	s := &Subscription{
		notifier: n,
		key:      key,
		ch:       make(chan any),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(s.ch)
		close(s.done)
		s.closed = true
		return s
	}
	set, ok := n.subs[key]
	if !ok {
		set = make(map[*Subscription]struct{})
		n.subs[key] = set
	}
	set[s] = struct{}{}
	n.mu.Unlock()

	go s.pump()
	return s
}

// Publish delivers snapshot to every open subscription on key. Callers
// publish after their write committed, so subscribers observe records in
// commit order.
func (n *Notifier) Publish(key string, snapshot any) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	for s := range n.subs[key] {
		s.enqueue(snapshot)
	}
	for _, tap := range n.taps {
		tap(key, snapshot)
	}
}

// Tap registers an observer invoked for every publish on every key. Taps
// run under the notifier's lock and must not block; they exist so external
// bridges can mirror the feed without a per-key subscription.
func (n *Notifier) Tap(fn func(key string, snapshot any)) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.taps = append(n.taps, fn)
}

// Close shuts down the notifier and every open subscription.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	var all []*Subscription
	for _, set := range n.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	n.subs = make(map[string]map[*Subscription]struct{})
	n.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}

func (n *Notifier) unsubscribe(s *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if set, ok := n.subs[s.key]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(n.subs, s.key)
		}
	}
}

// Subscription is one live feed on a record key. Snapshots() yields full
// record snapshots in publish order; Close is the cancellation point and
// stops delivery.
type Subscription struct {
	notifier *Notifier
	key      string
	ch       chan any
	done     chan struct{}

	mu      sync.Mutex
	pending []any
	wake    chan struct{}
	floor   int64
	closed  bool
}

// Snapshots returns the delivery channel. It is closed when the
// subscription is closed.
func (s *Subscription) Snapshots() <-chan any { return s.ch }

// Key returns the record key this subscription follows.
func (s *Subscription) Key() string { return s.key }

// SetFloor raises the minimum version this subscription will deliver.
// Callers that hand the consumer an initial snapshot out of band set the
// floor to that snapshot's version so the feed never steps behind it.
func (s *Subscription) SetFloor(v int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v > s.floor {
		s.floor = v
	}
}

// Close stops delivery and releases the subscription. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.notifier.unsubscribe(s)
}

func (s *Subscription) enqueue(snapshot any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pending = append(s.pending, snapshot)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// pump drains the pending queue into the delivery channel, preserving
// order. Versioned snapshots below the floor are dropped: a writer that read
// its snapshot before a later commit published must not rewind the feed.
// Equal versions pass, so delivery may duplicate but never regress. It exits
// once the subscription is closed.
func (s *Subscription) pump() {
	defer close(s.ch)

	for {
		s.mu.Lock()
		var next any
		have := len(s.pending) > 0
		if have {
			next = s.pending[0]
			s.pending = s.pending[1:]
			if v, ok := next.(Versioned); ok {
				if ver := v.SnapshotVersion(); ver < s.floor {
					s.mu.Unlock()
					continue
				} else if ver > s.floor {
					s.floor = ver
				}
			}
		}
		s.mu.Unlock()

		if !have {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case s.ch <- next:
		case <-s.done:
			return
		}
	}
}
