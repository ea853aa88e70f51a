package engine

// DirectionQueueCapacity is the maximum number of buffered direction changes
const DirectionQueueCapacity = 2

// DirectionQueue buffers direction changes submitted between two ticks
type DirectionQueue struct {
	items [DirectionQueueCapacity]Direction
	n     int
}

// Len returns the number of pending changes
func (q *DirectionQueue) Len() int { return q.n }

// Last returns the most recently queued direction, or current when the queue is empty
func (q *DirectionQueue) Last(current Direction) Direction {
	if q.n == 0 {
		return current
	}
	return q.items[q.n-1]
}

// Request queues dir unless the queue is full or dir repeats or reverses the
// last queued heading. Dropped requests are not errors.
func (q *DirectionQueue) Request(dir Direction, current Direction) bool {
	if q.n == DirectionQueueCapacity {
		return false
	}
	last := q.Last(current)
	if dir == last || dir == last.Opposite() {
		return false
	}
	q.items[q.n] = dir
	q.n++
	return true
}

// Pop removes the front direction
func (q *DirectionQueue) Pop() (Direction, bool) {
	if q.n == 0 {
		return "", false
	}
	front := q.items[0]
	copy(q.items[:], q.items[1:q.n])
	q.n--
	q.items[q.n] = ""
	return front, true
}

// Pending returns the queued directions front first
func (q *DirectionQueue) Pending() []Direction {
	out := make([]Direction, q.n)
	copy(out, q.items[:q.n])
	return out
}

// Clear drops every pending change
func (q *DirectionQueue) Clear() {
	*q = DirectionQueue{}
}
