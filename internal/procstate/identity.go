// Package procstate holds the interceptor-local state that has to survive
// across individual wrapped libc calls within one process: the per-fd
// notification table, the danger-zone/signal-delay bookkeeping, the
// posix_spawn file-actions side table, the popened-stream set, and the
// process's own identity.
package procstate

import "sync"

// Identity is the process-local information the interceptor needs about
// itself: which socket it talks to the supervisor on, and what its own
// pid/ppid were observed to be at connect time.
type Identity struct {
	mu sync.RWMutex

	connFd        int
	connString    string
	pid           int
	ppid          int
	initialLDPath string
}

// NewIdentity captures a freshly (re)established connection's identity.
// Called once at interceptor init and again by every at-fork-child
// handler, since a child's connFd and pid/ppid differ from its parent's.
func NewIdentity(connFd int, connString string, pid, ppid int, initialLDPath string) *Identity {
	return &Identity{
		connFd:        connFd,
		connString:    connString,
		pid:           pid,
		ppid:          ppid,
		initialLDPath: initialLDPath,
	}
}

func (id *Identity) ConnFd() int {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.connFd
}

// SetConnFd updates the supervisor connection fd, used when dup2/dup3
// relocates it out from under a colliding newfd.
func (id *Identity) SetConnFd(fd int) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.connFd = fd
}

func (id *Identity) ConnString() string {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.connString
}

func (id *Identity) Pid() int {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.pid
}

func (id *Identity) Ppid() int {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.ppid
}

func (id *Identity) InitialLDLibraryPath() string {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.initialLDPath
}

// Reset re-establishes identity after a fork, replacing connFd/pid/ppid in
// place so any code holding a reference to the Identity observes the
// child's values from that point on.
func (id *Identity) Reset(connFd int, connString string, pid, ppid int) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.connFd = connFd
	id.connString = connString
	id.pid = pid
	id.ppid = ppid
}
