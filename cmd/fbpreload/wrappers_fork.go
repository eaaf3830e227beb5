//go:build linux && cgo

package main

/*
#include <signal.h>
#include <sys/types.h>

extern pid_t fb_real_fork(void);

// fb_block_all_signals blocks every signal on the calling thread and
// returns the mask that was in effect before, so the caller can restore
// it later. Between this call and fb_restore_signals, no signal this
// thread would otherwise have received can run interceptor code, which is
// what keeps fork races (spec.md §9) from letting a signal land on the
// child before its at-fork-child handshake has reset its state.
static sigset_t fb_block_all_signals(void) {
	sigset_t block_all, orig;
	sigfillset(&block_all);
	sigprocmask(SIG_SETMASK, &block_all, &orig);
	return orig;
}

static void fb_restore_signals(sigset_t *orig) {
	sigprocmask(SIG_SETMASK, orig, NULL);
}
*/
import "C"

import "os"

// fb_go_fork implements fork()'s wrapper: the parent reports the new
// child's pid over its existing connection; the child, which shares that
// connection's fd across the fork, reconnects fresh through
// reconnectAfterFork (a new shmq region, a new connection and a new
// runAckReader goroutine, then ForkChildHandshake) so that the two
// processes do not write onto the same socket; the inherited fd is not
// closed. All signals are blocked around fb_real_fork itself and, in the
// child, kept blocked until reconnectAfterFork has finished: otherwise a
// signal delivered to the child between the kernel's fork and the
// handshake completing could run interceptor code with no working
// connection yet, which spec.md §9 rules out entirely.
//
//export fb_go_fork
func fb_go_fork() C.pid_t {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_fork()
	}

	acquired := h.Lock()
	h.DZ().Enter()

	origMask := C.fb_block_all_signals()
	pid := C.fb_real_fork()

	switch {
	case pid > 0:
		C.fb_restore_signals(&origMask)
		_ = h.ForkParent(int(pid))
		reraise, closed := h.LeaveDangerZone()
		if closed {
			reraiseSignals(reraise)
		}
		h.Unlock(acquired)
	case pid == 0:
		reconnectAfterFork()
		C.fb_restore_signals(&origMask)
	default:
		// fork() itself failed; nothing to reconnect, just undo what we
		// set up around the call.
		C.fb_restore_signals(&origMask)
		reraise, closed := h.LeaveDangerZone()
		if closed {
			reraiseSignals(reraise)
		}
		h.Unlock(acquired)
	}

	return pid
}

// reconnectAfterFork rebuilds this process's entire interceptor state
// against a fresh connection, the way load() does at process start, then
// performs fork_child instead of scproc_query. It never returns an error
// to the application: a channel failure here is handled the same way
// load()'s fatalAbort is, since a forked child with no working connection
// cannot safely continue running under interception.
func reconnectAfterFork() {
	pid := os.Getpid()
	ppid := os.Getppid()
	loadForPid(pid, ppid, true)
}
