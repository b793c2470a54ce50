package schedule

import "sync"

// KeyedMutex serializes check-then-insert sequences per resource key, e.g.
// "trainer:7:2025-06-01" or "equipment:3". Entries are reference-counted and
// dropped as soon as the last holder or waiter releases, so the map does not
// grow with every key ever seen and an entry is never evicted while anyone
// still waits on it.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*keyedLock),
	}
}

// Lock acquires the mutex for key, creating it on first use.
func (km *KeyedMutex) Lock(key string) {
	km.mu.Lock()
	l, exists := km.locks[key]
	if !exists {
		l = &keyedLock{}
		km.locks[key] = l
	}
	l.refs++
	km.mu.Unlock()

	l.mu.Lock()
}

// Unlock releases the mutex for key. Unlocking a key that was never locked
// panics, same as sync.Mutex.
func (km *KeyedMutex) Unlock(key string) {
	km.mu.Lock()
	l, exists := km.locks[key]
	if !exists {
		km.mu.Unlock()
		panic("schedule: unlock of unknown key " + key)
	}
	l.refs--
	if l.refs == 0 {
		delete(km.locks, key)
	}
	km.mu.Unlock()

	l.mu.Unlock()
}
