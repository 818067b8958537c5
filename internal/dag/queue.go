package dag

// Queue is the FIFO of variables awaiting a refetch.
// It is owned by a single caller and performs no locking.
type Queue struct {
	items []string
}

// NewQueue creates a queue holding items, duplicates dropped.
func NewQueue(items ...string) *Queue {
	q := &Queue{}
	for _, item := range items {
		q.Push(item)
	}
	return q
}

// Push appends name unless it is already queued.
func (q *Queue) Push(name string) {
	if contains(q.items, name) {
		return
	}
	q.items = append(q.items, name)
}

// Head returns the first queued name.
func (q *Queue) Head() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	return q.items[0], true
}

// Pop removes and returns the first queued name.
func (q *Queue) Pop() (string, bool) {
	head, ok := q.Head()
	if ok {
		q.items = q.items[1:]
	}
	return head, ok
}

// Remove drops name wherever it is queued.
func (q *Queue) Remove(name string) bool {
	for i, item := range q.items {
		if item == name {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether name is queued.
func (q *Queue) Contains(name string) bool {
	return contains(q.items, name)
}

// Len returns the number of queued names.
func (q *Queue) Len() int {
	return len(q.items)
}

// Items returns a copy of the queue contents, head first.
func (q *Queue) Items() []string {
	out := make([]string, len(q.items))
	copy(out, q.items)
	return out
}
