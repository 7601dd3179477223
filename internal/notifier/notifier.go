// Package notifier provides a keyed broadcast mechanism for live updates.
// Listeners receive an empty struct when something they watch changed and
// re-read the state they render.
package notifier

import "sync"

// All is the key of listeners that want every ping.
const All = ""

// Notifier broadcasts update pings to subscribed listeners.
// Listeners subscribe under a key (an owner id, for example); Notify pings
// the listeners of one key plus those under All, NotifyAll pings everyone.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]string
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]string),
	}
}

// Subscribe returns a channel that receives pings for key.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe(key string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = key
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
// Unsubscribing twice is a no-op.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}

// Notify pings the listeners of key and the listeners of All.
// Non-blocking: if a listener's channel is full, the ping is skipped.
func (n *Notifier) Notify(key string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch, k := range n.listeners {
		if k == key || k == All {
			ping(ch)
		}
	}
}

// NotifyAll pings every listener.
func (n *Notifier) NotifyAll() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		ping(ch)
	}
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

func ping(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
		// already pending; the listener re-reads state once
	}
}
