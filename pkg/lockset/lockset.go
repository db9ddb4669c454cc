package lockset

import "sync"

type entry struct {
	sync.Mutex
	refs int
}

// LockSet holds one mutex per key. Keys that nobody holds or waits on are
// forgotten, so the set only grows with concurrent use.
type LockSet[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

func New[K comparable]() *LockSet[K] {
	return &LockSet[K]{
		entries: make(map[K]*entry),
	}
}

// Lock blocks until key is held and returns the function that releases it
func (ls *LockSet[K]) Lock(key K) (unlock func()) {
	ls.mu.Lock()

	e, ok := ls.entries[key]
	if !ok {
		e = &entry{}
		ls.entries[key] = e
	}

	e.refs++
	ls.mu.Unlock()

	e.Lock()

	return func() {
		e.Unlock()

		ls.mu.Lock()
		e.refs--

		if e.refs == 0 {
			delete(ls.entries, key)
		}

		ls.mu.Unlock()
	}
}

// Contains returns a boolean if a key is currently held or waited on
func (ls *LockSet[K]) Contains(key K) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	_, ok := ls.entries[key]

	return ok
}

// Len returns how many keys are currently held or waited on
func (ls *LockSet[K]) Len() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	return len(ls.entries)
}
