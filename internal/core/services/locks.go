package services

import (
	"path/filepath"
	"sync"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

// dirLock guards one index directory.
// writer serialises mutations while they stage their output;
// rw is held exclusively only for the swap and shared by readers.
type dirLock struct {
	rw     sync.RWMutex
	writer sync.Mutex
}

var (
	dirLocksMu sync.Mutex
	dirLocks   = make(map[string]*dirLock)
)

// lockFor returns the process-wide lock for dir.
// Services opened on the same directory share a lock.
func lockFor(dir string) *dirLock {
	key := filepath.Clean(dir)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}

	dirLocksMu.Lock()
	defer dirLocksMu.Unlock()

	l, ok := dirLocks[key]
	if !ok {
		l = &dirLock{}
		dirLocks[key] = l
	}
	return l
}

// acquireWriter takes the writer mutex and returns its release func.
// With noWait set it fails with ErrIndexBusy instead of blocking.
func (l *dirLock) acquireWriter(noWait bool) (func(), error) {
	if noWait {
		if !l.writer.TryLock() {
			return nil, domain.ErrIndexBusy
		}
	} else {
		l.writer.Lock()
	}
	return l.writer.Unlock, nil
}
