package library

import "sync"

// bookLocks hands out one mutex per book id. Entries are dropped once no
// goroutine holds or waits on them, so the table only grows with the number
// of books being mutated concurrently.
type bookLocks struct {
	mu    sync.Mutex
	locks map[int64]*bookLock
}

type bookLock struct {
	sync.Mutex
	refs int
}

func newBookLocks() *bookLocks {
	return &bookLocks{locks: make(map[int64]*bookLock)}
}

// lock blocks until the caller owns bookID and returns the release func.
func (l *bookLocks) lock(bookID int64) (unlock func()) {
	l.mu.Lock()
	bl, ok := l.locks[bookID]
	if !ok {
		bl = &bookLock{}
		l.locks[bookID] = bl
	}
	bl.refs++
	l.mu.Unlock()

	bl.Lock()
	return func() {
		bl.Unlock()
		l.mu.Lock()
		bl.refs--
		if bl.refs == 0 {
			delete(l.locks, bookID)
		}
		l.mu.Unlock()
	}
}
