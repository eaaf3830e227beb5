//go:build linux && cgo

package main

/*
extern int fb_real_dup3(int, int, int);
*/
import "C"

import "golang.org/x/sys/unix"

// fb_go_dup3 mirrors fb_go_dup2's wrapper exactly, with the extra flags
// argument (O_CLOEXEC) passed straight through to the real call.
//
//export fb_go_dup3
func fb_go_dup3(oldfd, newfd, flags C.int) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_dup3(oldfd, newfd, flags)
	}

	if h.Dup2Before(int(newfd)) {
		setErrno(int(unix.EBADF))
		return -1
	}

	acquired := h.Lock()
	h.DZ().Enter()

	ret := C.fb_real_dup3(oldfd, newfd, flags)
	h.Dup2After(int(oldfd), int(newfd), ret >= 0)

	reraise, closed := h.LeaveDangerZone()
	if closed {
		reraiseSignals(reraise)
	}
	h.Unlock(acquired)
	return ret
}
