package engine

// SnakeBody is an array-backed ring buffer of positions, head first.
// The buffer doubles when full so both ends stay O(1).
type SnakeBody struct {
	buf   []Position
	start int // index of the head
	n     int
}

// NewSnakeBody creates an empty body with room for capacity segments
func NewSnakeBody(capacity int) *SnakeBody {
	if capacity < InitialSnakeLength {
		capacity = InitialSnakeLength
	}
	return &SnakeBody{buf: make([]Position, capacity)}
}

// Len returns the number of segments
func (b *SnakeBody) Len() int { return b.n }

// Head returns the front segment. The body must not be empty.
func (b *SnakeBody) Head() Position {
	return b.buf[b.start]
}

// Tail returns the back segment. The body must not be empty.
func (b *SnakeBody) Tail() Position {
	return b.buf[b.index(b.n-1)]
}

// At returns the i-th segment counting from the head
func (b *SnakeBody) At(i int) Position {
	return b.buf[b.index(i)]
}

// Contains reports whether pos is part of the body
func (b *SnakeBody) Contains(pos Position) bool {
	for i := 0; i < b.n; i++ {
		if b.buf[b.index(i)] == pos {
			return true
		}
	}
	return false
}

// Positions returns the segments head first
func (b *SnakeBody) Positions() []Position {
	out := make([]Position, b.n)
	for i := range out {
		out[i] = b.buf[b.index(i)]
	}
	return out
}

// PushFront prepends pos as the new head
func (b *SnakeBody) PushFront(pos Position) {
	if b.n == len(b.buf) {
		b.grow()
	}
	b.start = (b.start - 1 + len(b.buf)) % len(b.buf)
	b.buf[b.start] = pos
	b.n++
}

// PushBack appends pos as the new tail
func (b *SnakeBody) PushBack(pos Position) {
	if b.n == len(b.buf) {
		b.grow()
	}
	b.buf[b.index(b.n)] = pos
	b.n++
}

// PopBack removes and returns the tail. The body must not be empty.
func (b *SnakeBody) PopBack() Position {
	tail := b.Tail()
	b.n--
	return tail
}

// Clear drops every segment, keeping the buffer
func (b *SnakeBody) Clear() {
	b.start = 0
	b.n = 0
}

func (b *SnakeBody) index(i int) int {
	return (b.start + i) % len(b.buf)
}

func (b *SnakeBody) grow() {
	next := make([]Position, len(b.buf)*2)
	for i := 0; i < b.n; i++ {
		next[i] = b.buf[b.index(i)]
	}
	b.buf = next
	b.start = 0
}
