package procstate

import (
	"sync"

	"github.com/firebuild-go/fbcore/internal/constants"
)

// FDFlags records which "first occurrence" notifications have already
// fired for one fd. An unmapped/zero-value entry means nothing has been
// reported yet and the fd carries default flags.
type FDFlags struct {
	NotifiedRead   bool
	NotifiedPRead  bool
	NotifiedWrite  bool
	NotifiedPWrite bool
	NotifiedSeek   bool
	NotifiedTell   bool

	// IsPipeEndpoint marks fds the interceptor itself created via
	// pipe/pipe2/popen, so close() knows to barrier-then-socket them.
	IsPipeEndpoint bool
}

// FDTable is a dense, fixed-size per-fd state array. Every access must
// happen under the caller's global lock; it does its own locking only to
// make isolated unit tests convenient.
type FDTable struct {
	mu      sync.Mutex
	entries [constants.MaxTrackedFD]FDFlags
}

// NewFDTable returns a zeroed table: every fd starts un-notified.
func NewFDTable() *FDTable {
	return &FDTable{}
}

func inRange(fd int) bool {
	return fd >= 0 && fd < constants.MaxTrackedFD
}

// Get returns a copy of fd's current flags. Out-of-range fds report the
// zero value, matching "unmapped slots imply default flags."
func (t *FDTable) Get(fd int) FDFlags {
	if !inRange(fd) {
		return FDFlags{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[fd]
}

// Clear resets fd to the unnotified state, used on close or open() reusing
// a number; a dup2 overwrite of newfd goes through Move instead.
func (t *FDTable) Clear(fd int) {
	if !inRange(fd) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[fd] = FDFlags{}
}

// ClearRange clears every fd in [lo, hi], for close_range/closefrom. When
// cloexecOnly is set (CLOSE_RANGE_CLOEXEC), nothing is changed: every
// flag, the pipe-endpoint marker included, is left as it is, since
// close_range with that flag does not close anything.
func (t *FDTable) ClearRange(lo, hi int, cloexecOnly bool) {
	if cloexecOnly {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if lo < 0 {
		lo = 0
	}
	if hi >= constants.MaxTrackedFD {
		hi = constants.MaxTrackedFD - 1
	}
	for fd := lo; fd <= hi; fd++ {
		t.entries[fd] = FDFlags{}
	}
}

// Move copies oldfd's flags onto newfd (replacing newfd's own), for a
// successful dup2/dup3; oldfd keeps its flags.
func (t *FDTable) Move(oldfd, newfd int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var flags FDFlags
	if inRange(oldfd) {
		flags = t.entries[oldfd]
	}
	if inRange(newfd) {
		t.entries[newfd] = flags
	}
}

// MarkPipeEndpoint records that fd was created by our own pipe/popen
// bookkeeping, so a later close() on it is routed over the socket with a
// preceding barrier instead of going out lock-free on shmq.
func (t *FDTable) MarkPipeEndpoint(fd int) {
	if !inRange(fd) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[fd].IsPipeEndpoint = true
}

// NoteRead reports whether this is the first read (or pread) observed on
// fd since the last reset, flipping the corresponding bit if so.
func (t *FDTable) NoteRead(fd int, positioned bool) (first bool) {
	if !inRange(fd) {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e := &t.entries[fd]
	if positioned {
		first = !e.NotifiedPRead
		e.NotifiedPRead = true
	} else {
		first = !e.NotifiedRead
		e.NotifiedRead = true
	}
	return first
}

// NoteWrite is NoteRead's write-side counterpart.
func (t *FDTable) NoteWrite(fd int, positioned bool) (first bool) {
	if !inRange(fd) {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e := &t.entries[fd]
	if positioned {
		first = !e.NotifiedPWrite
		e.NotifiedPWrite = true
	} else {
		first = !e.NotifiedWrite
		e.NotifiedWrite = true
	}
	return first
}

// NoteSeek is NoteRead's lseek-side counterpart; tell (ftell/lseek with
// SEEK_CUR, 0) uses the separate NotifiedTell bit.
func (t *FDTable) NoteSeek(fd int, isTell bool) (first bool) {
	if !inRange(fd) {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e := &t.entries[fd]
	if isTell {
		first = !e.NotifiedTell
		e.NotifiedTell = true
	} else {
		first = !e.NotifiedSeek
		e.NotifiedSeek = true
	}
	return first
}
