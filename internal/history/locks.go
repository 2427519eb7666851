package history

import "sync"

// Locks serializes work per group id. Different groups never contend.
// Entries are dropped once no goroutine holds or waits for them.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*groupLock
}

type groupLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocks returns an empty lock table.
func NewLocks() *Locks {
	return &Locks{locks: map[string]*groupLock{}}
}

// Lock acquires the lock of groupID and returns its release func.
func (l *Locks) Lock(groupID string) (unlock func()) {
	l.mu.Lock()
	gl, ok := l.locks[groupID]
	if !ok {
		gl = &groupLock{}
		l.locks[groupID] = gl
	}
	gl.refs++
	l.mu.Unlock()

	gl.mu.Lock()
	return func() {
		gl.mu.Unlock()
		l.mu.Lock()
		gl.refs--
		if gl.refs == 0 {
			delete(l.locks, groupID)
		}
		l.mu.Unlock()
	}
}

// Len reports how many groups currently hold or wait for a lock.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
