// Package netstate tracks network availability for the sync core. The
// runtime (platform hooks, a probe loop, tests) reports transitions via
// SetOnline; interested components register reconnect callbacks so a
// restored connection immediately re-triggers the queue drain.
package netstate

import "sync"

// Tracker holds the current online/offline state. The zero value is not
// usable; construct with New. Safe for concurrent use.
type Tracker struct {
	mu          sync.Mutex
	online      bool
	onReconnect []func()
}

// New returns a Tracker starting in the given state.
func New(online bool) *Tracker {
	return &Tracker{online: online}
}

// Online reports current network availability.
func (t *Tracker) Online() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.online
}

// SetOnline records a connectivity transition. Moving from offline to
// online fires every registered reconnect callback once, synchronously, in
// registration order. Redundant transitions (online to online) are no-ops.
func (t *Tracker) SetOnline(online bool) {
	t.mu.Lock()
	fire := online && !t.online
	t.online = online
	cbs := t.onReconnect
	t.mu.Unlock()

	if fire {
		for _, cb := range cbs {
			cb()
		}
	}
}

// OnReconnect registers a callback invoked whenever connectivity returns.
func (t *Tracker) OnReconnect(cb func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReconnect = append(t.onReconnect, cb)
}
