//go:build linux && cgo

package main

/*
#include <signal.h>

typedef void (*fb_sighandler_fn)(int);

extern int fb_install_trampoline(int, const struct sigaction *, struct sigaction *);
extern fb_sighandler_fn fb_install_signal(int, fb_sighandler_fn);

// fb_sigaction_get_handler/fb_sigaction_set_handler hide sa_handler's
// access via the portable macro name rather than reaching into libc's
// internal sigaction union representation directly from Go.
static fb_sighandler_fn fb_sigaction_get_handler(const struct sigaction *sa) { return sa->sa_handler; }
static void fb_sigaction_set_handler(struct sigaction *sa, fb_sighandler_fn h) { sa->sa_handler = h; }
*/
import "C"

import "unsafe"

// fb_go_sigaction implements the sigaction() wrapper: install our
// trampoline as the real kernel-facing handler while stashing the
// application's own handler in the C-side table, and make sure oldact
// reports the user's previously installed handler, never our trampoline.
//
//export fb_go_sigaction
func fb_go_sigaction(signum C.int, act, oldact *C.struct_sigaction) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() || act == nil {
		return C.fb_install_trampoline(signum, act, oldact)
	}

	ret := C.fb_install_trampoline(signum, act, oldact)
	if ret == 0 {
		newHandler := uintptr(unsafe.Pointer(C.fb_sigaction_get_handler(act)))
		previous := h.Signals.Install(int(signum), newHandler)
		if oldact != nil && previous != 0 {
			C.fb_sigaction_set_handler(oldact, (C.fb_sighandler_fn)(unsafe.Pointer(previous)))
		}
	}
	return ret
}

// fb_go_signal implements the older signal()-style wrapper on top of the
// same trampoline/table fb_go_sigaction uses, returning the previously
// installed user handler (never our trampoline) the way signal(2)'s
// contract requires.
//
//export fb_go_signal
func fb_go_signal(signum C.int, handler C.fb_sighandler_fn) C.fb_sighandler_fn {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_install_signal(signum, handler)
	}

	ret := C.fb_install_signal(signum, handler)
	previous := h.Signals.Install(int(signum), uintptr(unsafe.Pointer(handler)))
	if previous != 0 {
		return (C.fb_sighandler_fn)(unsafe.Pointer(previous))
	}
	return ret
}

// fb_go_signal_should_run is what the C trampoline calls on every signal
// delivery: if the calling thread's danger zone is active, the signal is
// recorded for later re-raise and the trampoline must not invoke the
// user handler at all.
//
//export fb_go_signal_should_run
func fb_go_signal_should_run(signum C.int) C.int {
	h := currentHooks()
	if h == nil {
		return 1
	}
	if h.DelayOrRun(int(signum)) {
		return 1
	}
	return 0
}

//export fb_go_signal_done
func fb_go_signal_done(signum C.int) {
	if h := currentHooks(); h != nil {
		h.SignalHandlerDone()
	}
}
