package crawler

// Frontier implements the BFS work queue with O(1) membership checks.
// It is owned by the scheduler goroutine and is not safe for concurrent use.
type Frontier struct {
	items  []string
	queued map[string]bool
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	return &Frontier{
		items:  make([]string, 0),
		queued: make(map[string]bool),
	}
}

// Push appends a URL key unless it is already waiting in the queue.
// Returns true if added, false if duplicate
func (f *Frontier) Push(key string) bool {
	if f.queued[key] {
		return false
	}
	f.queued[key] = true
	f.items = append(f.items, key)
	return true
}

// Pop removes and returns the first key. Returns ("", false) when empty
func (f *Frontier) Pop() (string, bool) {
	if len(f.items) == 0 {
		return "", false
	}
	key := f.items[0]
	f.items[0] = ""
	f.items = f.items[1:]
	delete(f.queued, key)
	return key, true
}

// Contains reports whether the key is waiting in the queue
func (f *Frontier) Contains(key string) bool {
	return f.queued[key]
}

// IsEmpty returns true if the queue has no items
func (f *Frontier) IsEmpty() bool {
	return len(f.items) == 0
}

// Size returns the current number of items in the queue
func (f *Frontier) Size() int {
	return len(f.items)
}
