package services

import (
	"sync"

	"github.com/google/uuid"
)

// accountLocks hands out one mutex per account id so every load→mutate→save
// sequence for a given account runs in an exclusive section. The store itself
// is last-write-wins; without this, two concurrent mutations on the same
// account silently lose one update.
//
// Entries are never removed; the table grows with the number of distinct
// accounts touched by the process.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *accountLocks) get(id uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// lock acquires the exclusive section for one account.
func (l *accountLocks) lock(id uuid.UUID) func() {
	m := l.get(id)
	m.Lock()
	return m.Unlock
}

// lockPair acquires both accounts' sections in canonical id order, so two
// transfers touching the same accounts in opposite directions cannot
// deadlock. Locking the same id twice takes a single lock.
func (l *accountLocks) lockPair(a, b uuid.UUID) func() {
	if a == b {
		return l.lock(a)
	}
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}
	mFirst := l.get(first)
	mSecond := l.get(second)
	mFirst.Lock()
	mSecond.Lock()
	return func() {
		mSecond.Unlock()
		mFirst.Unlock()
	}
}
