// Package notifier fans workspace change events out to SSE listeners.
package notifier

import "sync"

// Event announces that the record stored under Partition changed.
// Origin is the window that caused the change.
type Event struct {
	Partition string
	Origin    string
}

// Notifier delivers events to listeners subscribed to the same partition.
// A listener never receives events it originated.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]listener
}

type listener struct {
	partition string
	origin    string
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]listener),
	}
}

// Subscribe returns a channel that receives events for partition caused
// by anyone other than origin. An empty origin receives every event.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe(partition, origin string) chan Event {
	ch := make(chan Event, 1)
	n.mu.Lock()
	n.listeners[ch] = listener{partition: partition, origin: origin}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// Publish sends ev to every listener of ev.Partition except its origin.
// Non-blocking: if a listener's channel is full, the event is skipped.
func (n *Notifier) Publish(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch, l := range n.listeners {
		if l.partition != ev.Partition {
			continue
		}
		if l.origin != "" && l.origin == ev.Origin {
			continue
		}
		select {
		case ch <- ev:
		default:
			// Channel full, the listener already has a pending event
		}
	}
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
