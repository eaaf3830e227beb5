//go:build linux && cgo

package main

/*
#include <sys/types.h>
#include <unistd.h>

extern int fb_real_open(const char *, int, mode_t);
extern int fb_real_close(int);
extern long fb_real_read(int, void *, size_t);
extern long fb_real_write(int, const void *, size_t);
extern int fb_real_dup2(int, int);
extern int fb_real_pipe2(int *, int);
*/
import "C"

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/firebuild-go/fbcore/internal/interceptor"
)

// fb_go_open implements the open()/openat()/creat() wrapper family's
// twelve-step protocol against a single representative entry point.
// dirfd is always AT_FDCWD here since plain open() carries no directory
// fd of its own; the openat() shadow (not wired below, mechanically
// identical) would thread a real dirfd through unchanged.
//
//export fb_go_open
func fb_go_open(path *C.char, flags C.int, mode C.mode_t) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_open(path, flags, mode)
	}

	acquired := h.Lock()
	h.DZ().Enter()

	ret := C.fb_real_open(path, flags, mode)
	errno := 0
	if ret < 0 {
		errno = int(getErrno())
	}

	if ret >= 0 || (errno != int(unix.EINTR) && errno != int(unix.EFAULT)) {
		_ = h.ReportOpen(interceptor.OpenResult{
			Dirfd:    unix_AT_FDCWD,
			Pathname: C.GoString(path),
			Flags:    int(flags),
			Mode:     int(mode),
			Ret:      int(ret),
		})
	}

	reraise, closed := h.LeaveDangerZone()
	if closed {
		reraiseSignals(reraise)
	}
	h.Unlock(acquired)
	return ret
}

//export fb_go_close
func fb_go_close(fd C.int) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_close(fd)
	}
	if h.GuardConnFd(int(fd)) {
		setErrno(int(unix.EBADF))
		return -1
	}

	acquired := h.Lock()
	h.DZ().Enter()

	ret := C.fb_real_close(fd)
	if ret == 0 {
		_ = h.ReportClose(int(fd))
	}

	reraise, closed := h.LeaveDangerZone()
	if closed {
		reraiseSignals(reraise)
	}
	h.Unlock(acquired)
	return ret
}

//export fb_go_read
func fb_go_read(fd C.int, buf unsafe.Pointer, count C.size_t) C.long {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.long(C.fb_real_read(fd, buf, count))
	}

	h.DZ().Enter()
	_ = h.NoteRead(int(fd), false)
	ret := C.fb_real_read(fd, buf, count)
	reraise, closed := h.LeaveDangerZone()
	if closed {
		reraiseSignals(reraise)
	}
	return C.long(ret)
}

//export fb_go_write
func fb_go_write(fd C.int, buf unsafe.Pointer, count C.size_t) C.long {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.long(C.fb_real_write(fd, buf, count))
	}

	h.DZ().Enter()
	_ = h.NoteWrite(int(fd), false)
	ret := C.fb_real_write(fd, buf, count)
	reraise, closed := h.LeaveDangerZone()
	if closed {
		reraiseSignals(reraise)
	}
	return C.long(ret)
}

//export fb_go_dup2
func fb_go_dup2(oldfd, newfd C.int) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_dup2(oldfd, newfd)
	}

	mustRelocate := h.Dup2Before(int(newfd))
	if mustRelocate {
		// A dup2 onto the supervisor connection fd is refused with EBADF;
		// the connection is not moved to another fd.
		setErrno(int(unix.EBADF))
		return -1
	}

	acquired := h.Lock()
	h.DZ().Enter()

	ret := C.fb_real_dup2(oldfd, newfd)
	h.Dup2After(int(oldfd), int(newfd), ret >= 0)

	reraise, closed := h.LeaveDangerZone()
	if closed {
		reraiseSignals(reraise)
	}
	h.Unlock(acquired)
	return ret
}

//export fb_go_pipe2
func fb_go_pipe2(fds *C.int, flags C.int) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_pipe2(fds, flags)
	}

	acquired := h.Lock()
	h.DZ().Enter()

	res, err := h.RequestPipe(int(flags))
	var ret C.int
	if err != nil || res.HasErrno {
		ret = -1
		if res.HasErrno {
			setErrno(res.Errno)
		}
	} else {
		goFds := (*[2]C.int)(unsafe.Pointer(fds))
		goFds[0] = C.int(res.Fd0)
		goFds[1] = C.int(res.Fd1)
		_ = h.AnnouncePipeFds(res.Fd0, res.Fd1)
		ret = 0
	}

	reraise, closed := h.LeaveDangerZone()
	if closed {
		reraiseSignals(reraise)
	}
	h.Unlock(acquired)
	return ret
}

const unix_AT_FDCWD = -100

// getErrno/setErrno read and write the calling OS thread's C errno. Real
// access goes through a cgo accessor so every wrapper observes the errno
// the just-completed libc call actually left behind, which a second cgo
// call (even a no-op one) risks clobbering; both are implemented in
// errno.go to keep that single cgo call site in one place.

func reraiseSignals(signums []int) {
	for _, s := range signums {
		raiseSignal(s)
	}
}
