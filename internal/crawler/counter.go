package crawler

import "sync/atomic"

// TaskCounter counts crawl tasks that have been entered but not yet exited.
// The value reaching zero means the whole task tree is quiescent.
type TaskCounter struct {
	n atomic.Int64
}

// Increment adds one outstanding task and returns the new value.
func (c *TaskCounter) Increment() int64 {
	return c.n.Add(1)
}

// Decrement removes one outstanding task and returns the value produced by
// that same atomic operation. Callers must compare this return value with
// zero instead of calling Read afterwards, otherwise two tasks could both
// observe zero.
func (c *TaskCounter) Decrement() int64 {
	v := c.n.Add(-1)
	if v < 0 {
		panic("[BUG] crawler: task counter decremented below zero")
	}
	return v
}

// Read returns the current number of outstanding tasks.
func (c *TaskCounter) Read() int64 {
	return c.n.Load()
}
