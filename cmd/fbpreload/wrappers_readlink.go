//go:build linux && cgo

package main

/*
#include <unistd.h>

extern ssize_t fb_real_readlink(const char *, char *, size_t);
*/
import "C"

// fb_go_readlink implements the readlink() wrapper: run the real call,
// then, on success, forward the resolved link target straight from the
// caller's own buffer, truncated to the length the kernel actually wrote
// into it. readlinkat() is the same logic with a real dirfd threaded
// through instead of AT_FDCWD; not wired separately here.
//
//export fb_go_readlink
func fb_go_readlink(path *C.char, buf *C.char, bufsiz C.size_t) C.long {
	h := currentHooks()
	ret := C.fb_real_readlink(path, buf, bufsiz)
	if h == nil || !h.Intercepting() || ret < 0 {
		return C.long(ret)
	}

	target := C.GoStringN(buf, C.int(ret))
	_ = h.ReportReadlink(target)
	return C.long(ret)
}
