package services

import "sync"

// userLocks serializes all streak mutations per user. Every engine entry
// point holds the user's lock for its whole read-modify-write sequence;
// the daily batch takes the same lock, so it never interleaves with
// request traffic for the same user. Different users proceed in parallel.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the per-user mutex and returns its unlock function
func (u *userLocks) Lock(userID string) func() {
	u.mu.Lock()
	lock, ok := u.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		u.locks[userID] = lock
	}
	u.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
