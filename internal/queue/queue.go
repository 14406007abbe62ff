// Package queue provides the byte FIFO backing the simulated and host-side
// receive paths.
package queue

// Bytes is an unbounded FIFO of bytes. The zero value is ready to use.
//
// Bytes is not goroutine-safe; callers guard it with their own lock.
type Bytes struct {
	items []byte
}

// NewBytes creates a byte FIFO with the given preallocated capacity.
func NewBytes(prealloc int) *Bytes {
	return &Bytes{items: make([]byte, 0, prealloc)}
}

// Push adds a byte to the tail of the queue.
func (q *Bytes) Push(b byte) {
	q.items = append(q.items, b)
}

// Append adds all bytes in p to the tail of the queue.
func (q *Bytes) Append(p []byte) {
	q.items = append(q.items, p...)
}

// Pop removes and returns the byte at the head of the queue.
// The second return value is false if the queue is empty.
func (q *Bytes) Pop() (byte, bool) {
	if len(q.items) == 0 {
		return 0, false
	}

	b := q.items[0]
	q.items = q.items[1:]

	return b, true
}

// Peek returns the byte at the head of the queue without removing it.
func (q *Bytes) Peek() (byte, bool) {
	if len(q.items) == 0 {
		return 0, false
	}

	return q.items[0], true
}

// Reset empties the queue, keeping the underlying storage for reuse.
func (q *Bytes) Reset() {
	q.items = q.items[:0]
}

// Len returns the number of queued bytes.
func (q *Bytes) Len() int {
	return len(q.items)
}
