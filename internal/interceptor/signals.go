package interceptor

import "sync"

// SignalTrampolines tracks the process-wide table of user-installed
// signal handlers the interceptor has wrapped, so a wrapped handler can
// still be looked up and restored without a cyclic ownership problem:
// installation and lookup go through the global lock, invocation through
// the caller's DangerZone.
//
// This only tracks bookkeeping; it cannot itself install a real POSIX
// signal handler or make Go's runtime call into a raw function pointer on
// signal delivery; cmd/fbpreload's cgo boundary owns the actual
// sigaction(2) trampoline and calls DelayOrRun/SignalHandlerDone from
// within it.
type SignalTrampolines struct {
	mu       sync.Mutex
	original map[int]uintptr // signum -> user handler address, as wrapped
}

// NewSignalTrampolines returns an empty table.
func NewSignalTrampolines() *SignalTrampolines {
	return &SignalTrampolines{original: make(map[int]uintptr)}
}

// Install records that signum's previous user handler was replaced by
// our trampoline, and returns the handler that was installed before this
// call (0 if none), which is what the wrapper must hand back to the
// application as signal()/sigaction()'s return value.
func (s *SignalTrampolines) Install(signum int, newUserHandler uintptr) (previous uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous = s.original[signum]
	s.original[signum] = newUserHandler
	return previous
}

// UserHandler returns the user handler currently registered for signum,
// unwrapping our trampoline: signal()/sigaction() must return the user's
// handler to the caller, never ours.
func (s *SignalTrampolines) UserHandler(signum int) uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original[signum]
}

// DelayOrRun is what the trampoline calls on delivery: if the calling
// thread's danger zone is active, the signal is recorded for later
// re-raise and ran=false; otherwise the caller must invoke the user
// handler itself (Go cannot call an arbitrary foreign function pointer)
// and ran=true tells it to do so.
func (h *Hooks) DelayOrRun(signum int) (ran bool) {
	dz := h.DZ()
	if dz.InZone() {
		dz.Delay(signum)
		return false
	}
	dz.SignalHandlerRunningDepth++
	return true
}

// SignalHandlerDone decrements the running-handler depth the trampoline
// incremented via DelayOrRun's ran=true path.
func (h *Hooks) SignalHandlerDone() {
	h.DZ().SignalHandlerRunningDepth--
}

// LeaveDangerZone implements protocol step 11: leave the zone and report
// which signals the caller must now re-raise, in ascending order.
func (h *Hooks) LeaveDangerZone() (toReraise []int, zoneClosed bool) {
	dz := h.DZ()
	zoneClosed = dz.Leave()
	if !zoneClosed {
		return nil, false
	}
	return dz.DrainDelayed(), true
}
