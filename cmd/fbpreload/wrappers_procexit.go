//go:build linux && cgo

package main

/*
#include <spawn.h>
#include <stdio.h>
#include <unistd.h>

static int fb_fileno(FILE *stream) { return fileno(stream); }

extern int fb_real_system(const char *);
extern FILE *fb_real_popen(const char *, const char *);
extern int fb_real_pclose(FILE *);
extern int fb_real_dup2(int, int);
extern int fb_real_close(int);
*/
import "C"

import "unsafe"

// fb_go_system implements system()'s wrapper: report the command, run
// it, then report its result, the whole thing serialized against other
// system/popen/pclose/posix_spawn activity on this process via
// LockSystemPopen.
//
//export fb_go_system
func fb_go_system(command *C.char) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_system(command)
	}

	goCmd := C.GoString(command)
	h.LockSystemPopen()
	defer h.UnlockSystemPopen()

	if err := h.SystemBefore(goCmd); err != nil {
		return -1
	}

	ret := C.fb_real_system(command)
	errno := 0
	if ret == -1 {
		errno = getErrno()
	}
	_ = h.SystemAfter(int(ret), errno)
	return ret
}

// fb_go_popen implements popen()'s wrapper. On success, the substitute fd
// the supervisor handed back is dup2'd onto the fd backing the returned
// FILE* (and then closed), and the stream is recorded in h.Popens so pclose() can
// later find it by FILE* and report the matching synthetic close.
//
//export fb_go_popen
func fb_go_popen(command, typ *C.char) *C.FILE {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_popen(command, typ)
	}

	goCmd := C.GoString(command)
	goTyp := C.GoString(typ)
	h.LockSystemPopen()
	defer h.UnlockSystemPopen()

	if err := h.PopenBefore(goCmd, goTyp); err != nil {
		return nil
	}

	stream := C.fb_real_popen(command, typ)
	if stream == nil {
		_ = h.PopenFailed(getErrno())
		return nil
	}

	fd := int(C.fb_fileno(stream))
	substitute, err := h.PopenAfterSuccess(fd)
	if err != nil {
		return stream
	}
	if C.fb_real_dup2(C.int(substitute), C.int(fd)) >= 0 {
		C.fb_real_close(C.int(substitute))
	}
	h.Popens.Add(uintptr(unsafe.Pointer(stream)), fd)
	return stream
}

// fb_go_pclose implements pclose()'s wrapper: the synthetic close report
// must land before the real pclose() is allowed to call wait4 on the
// child, since the application can no longer observe the fd once
// pclose() is entered.
//
//export fb_go_pclose
func fb_go_pclose(stream *C.FILE) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_pclose(stream)
	}

	h.LockSystemPopen()
	defer h.UnlockSystemPopen()

	if fd, ok := h.Popens.Lookup(uintptr(unsafe.Pointer(stream))); ok {
		_ = h.PcloseBefore(fd)
		h.Popens.Remove(uintptr(unsafe.Pointer(stream)))
	}

	// pclose()'s return value is the popen'd child's wait status; that
	// child's own lifecycle (fork_parent, exit) is already reported
	// through the ordinary process-tracking messages, so no separate
	// after-report belongs here beyond the synthetic close above.
	return C.fb_real_pclose(stream)
}
