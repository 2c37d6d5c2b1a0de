package workspace

// Scheduler defers work to a later tick of the owning event loop.
type Scheduler interface {
	Defer(fn func())
}

// TickQueue is a cooperative Scheduler. Deferred functions run on the next
// call to RunPending; functions deferred while running wait for the tick
// after that.
type TickQueue struct {
	pending []func()
}

// Defer queues fn for the next tick.
func (q *TickQueue) Defer(fn func()) {
	q.pending = append(q.pending, fn)
}

// RunPending runs one tick and returns how many functions ran.
func (q *TickQueue) RunPending() int {
	batch := q.pending
	q.pending = nil
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Len returns the number of queued functions.
func (q *TickQueue) Len() int { return len(q.pending) }
