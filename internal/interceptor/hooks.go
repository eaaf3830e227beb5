// Package interceptor implements the per-call wrapper protocol around each
// intercepted libc call: guard the connection fd, decide whether
// interception is active, take the global lock, enter the signal danger
// zone, run the wrapped libc call, and report it to the supervisor. Each
// file here covers one
// call family and operates purely through the Hooks struct so the family
// logic is unit-testable without a cgo boundary; cmd/fbpreload supplies
// the actual `//export`-ed C entry points and the real libc symbol
// resolution that calls into these.
package interceptor

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/firebuild-go/fbcore/internal/config"
	"github.com/firebuild-go/fbcore/internal/procstate"
	"github.com/firebuild-go/fbcore/internal/shmq"
	"github.com/firebuild-go/fbcore/internal/sidechannel"
)

// Hooks bundles everything one intercepted process's wrapper logic needs:
// the control connection, the per-process state tables, and the
// env-derived config. One Hooks exists per process; fork children get a
// fresh one built by cmd/fbpreload's loadForPid.
type Hooks struct {
	Config *config.Config

	globalLock   sync.Mutex
	sysPopenLock sync.Mutex

	Conn     *sidechannel.Conn
	Acks     *sidechannel.AckTable
	Shmq     *shmq.Writer
	Identity *procstate.Identity
	FDs      *procstate.FDTable
	Spawns   *procstate.SpawnActionsPool
	Popens   *procstate.PopenSet
	DZT      *procstate.DangerZoneTable
	Signals  *SignalTrampolines

	intercepting bool
	nestedCalls  int
}

// NewHooks wires up a freshly connected process's interceptor state. w is
// this process's end of the shmq hot path; Callers still owe it the
// scproc_query/scproc_resp handshake (see exec.go's Handshake) before
// setting Intercepting.
func NewHooks(cfg *config.Config, conn *sidechannel.Conn, w *shmq.Writer, identity *procstate.Identity) *Hooks {
	return &Hooks{
		Config:       cfg,
		Conn:         conn,
		Acks:         sidechannel.NewAckTable(),
		Shmq:         w,
		Identity:     identity,
		FDs:          procstate.NewFDTable(),
		Spawns:       procstate.NewSpawnActionsPool(),
		Popens:       procstate.NewPopenSet(),
		DZT:          procstate.NewDangerZoneTable(),
		Signals:      NewSignalTrampolines(),
		intercepting: true,
	}
}

// GuardConnFd implements step 1 of the wrapper protocol: refuse to let the
// application operate on the supervisor socket fd directly. Callers for
// close_range/closefrom/dup2/dup3 have their own bespoke handling and must
// not call this.
func (h *Hooks) GuardConnFd(fd int) (blocked bool) {
	return fd == h.Identity.ConnFd()
}

// Intercepting implements step 2: interception is off if the process was
// told to stand down, or if this is a nested libc call triggered from
// inside an interceptor callback.
func (h *Hooks) Intercepting() bool {
	return h.intercepting && h.nestedCalls == 0
}

// SetIntercepting lets scproc_resp's debug_flags (or a future stand-down
// signal) turn interception off for the rest of the process's life.
func (h *Hooks) SetIntercepting(on bool) {
	h.intercepting = on
}

// EnterNestedCall marks that the interceptor is about to call back into
// libc on its own behalf (e.g. dlinfo inside the dlopen wrapper), so that
// reentrant wrapper invocations triggered by it are not reported.
func (h *Hooks) EnterNestedCall() {
	h.nestedCalls++
}

func (h *Hooks) LeaveNestedCall() {
	h.nestedCalls--
}

// DZ returns the calling OS thread's own DangerZone, the thread-local
// state spec.md §3/§5 require for lock recursion and signal danger-zone
// bookkeeping. A cgo callback (wrapper entry or the signal trampoline) is
// always pinned to the real OS thread that called into it for the
// callback's duration, so unix.Gettid() here identifies that thread
// correctly and DZT.For gives it the same *DangerZone on every call for
// as long as the thread lives.
func (h *Hooks) DZ() *procstate.DangerZone {
	return h.DZT.For(int32(unix.Gettid()))
}

// Lock and Unlock implement step 3's global lock, collapsing recursive
// acquisition from the same OS thread via that thread's own
// DangerZone.HasGlobalLock, not a process-wide flag: a thread that does
// not already hold the lock always blocks on globalLock like any other
// contending thread, and only the thread that is already inside the
// critical section sees acquired=false.
func (h *Hooks) Lock() (acquired bool) {
	dz := h.DZ()
	if dz.HasGlobalLock {
		return false
	}
	h.globalLock.Lock()
	dz.HasGlobalLock = true
	return true
}

func (h *Hooks) Unlock(acquired bool) {
	if !acquired {
		return
	}
	h.DZ().HasGlobalLock = false
	h.globalLock.Unlock()
}

// LockSystemPopen serializes system/popen/pclose/posix_spawn so the
// supervisor never sees overlapping child-creation events from one
// interceptor.
func (h *Hooks) LockSystemPopen()   { h.sysPopenLock.Lock() }
func (h *Hooks) UnlockSystemPopen() { h.sysPopenLock.Unlock() }

// shouldReport implements the default send-condition of step 9: success,
// or failure with errno that isn't EINTR or EFAULT.
func shouldReport(success bool, errno int) bool {
	const eintr, efault = 4, 14
	if success {
		return true
	}
	return errno != eintr && errno != efault
}
