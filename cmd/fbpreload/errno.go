//go:build linux && cgo

package main

/*
#include <errno.h>
#include <signal.h>

static int fb_get_errno(void) { return errno; }
static void fb_set_errno(int e) { errno = e; }
static void fb_raise(int signum) { raise(signum); }
*/
import "C"

// getErrno reads the calling OS thread's errno immediately after a real
// libc call returns. cgo keeps a C-to-Go call pinned to the calling OS
// thread for its whole duration, so this always observes the errno the
// just-completed real call left behind.
func getErrno() int {
	return int(C.fb_get_errno())
}

// setErrno overwrites errno to report a failure the wrapper itself
// decided on (e.g. refusing to operate on the guarded connection fd)
// rather than one a real libc call produced.
func setErrno(e int) {
	C.fb_set_errno(C.int(e))
}

// raiseSignal re-delivers a signal DrainDelayed reported once the danger
// zone that deferred it has closed.
func raiseSignal(signum int) {
	C.fb_raise(C.int(signum))
}
