package main

import "sync"

// PointerLockManager owns the planchette lock for every room: an explicit
// map of room id to current holder. A missing entry means the lock is
// unheld. Entries spring into existence on first acquire and are dropped on
// release, so the map only ever holds live ownership.
type PointerLockManager struct {
	mu     sync.Mutex
	owners map[string]string
}

func newPointerLockManager() *PointerLockManager {
	return &PointerLockManager{
		owners: make(map[string]string),
	}
}

// Acquire attempts to take the lock for a room. It returns whether the lock
// was granted, plus the resulting holder: the requester on a grant, or the
// connection currently in the way on a denial. Re-acquiring a lock already
// held by the requester is granted again.
func (pl *PointerLockManager) Acquire(room, requester string) (bool, string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	current, held := pl.owners[room]
	if held && current != requester {
		return false, current
	}

	pl.owners[room] = requester

	return true, requester
}

// Release clears the lock for a room, but only if the requester holds it.
// Releasing a lock held by someone else, or not held at all, is ignored.
func (pl *PointerLockManager) Release(room, requester string) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.owners[room] != requester {
		return false
	}

	delete(pl.owners, room)

	return true
}

// ForceRelease clears the lock when its holder disconnects without an
// explicit release. The reporting semantics match Release.
func (pl *PointerLockManager) ForceRelease(room, requester string) bool {
	return pl.Release(room, requester)
}

// Owner returns the current holder for a room, or an empty string when the
// lock is unheld.
func (pl *PointerLockManager) Owner(room string) string {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	return pl.owners[room]
}

// Drop discards any lock entry for a room, regardless of holder. Used when
// an empty room is reaped.
func (pl *PointerLockManager) Drop(room string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	delete(pl.owners, room)
}
