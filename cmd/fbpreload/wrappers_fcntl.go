//go:build linux && cgo

package main

/*
extern int fb_real_fcntl(int, int, long);
extern int fb_real_ioctl(int, unsigned long, long);
extern int fb_real_close_range(unsigned int, unsigned int, int);
*/
import "C"

// fb_go_fcntl and fb_go_ioctl both funnel into Hooks.ReportFcntl, which
// itself allowlists the command numbers that can affect visible
// behavior; everything else is silently not reported, matching the rest
// of this family's "report only what the cache engine could possibly
// need" posture.
//
//export fb_go_fcntl
func fb_go_fcntl(fd, cmd C.int, arg C.long) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_fcntl(fd, cmd, arg)
	}

	ret := C.fb_real_fcntl(fd, cmd, arg)
	if ret >= 0 {
		_ = h.ReportFcntl(int(fd), int(cmd), int64(arg), true)
	}
	return ret
}

//export fb_go_ioctl
func fb_go_ioctl(fd C.int, req C.ulong, arg C.long) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_ioctl(fd, req, arg)
	}

	ret := C.fb_real_ioctl(fd, req, arg)
	if ret >= 0 {
		_ = h.ReportFcntl(int(fd), int(req), 0, false)
	}
	return ret
}

// fb_go_close_range implements close_range()/closefrom()'s wrapper: the
// raw [first, last] range is split around the supervisor connection fd so
// it is never closed as a side effect, then per-fd state is cleared for
// the (adjusted) range on success.
//
//export fb_go_close_range
func fb_go_close_range(first, last C.uint, flags C.int) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_close_range(first, last, flags)
	}

	connFd := uint(h.Identity.ConnFd())
	const cloexecFlag = 1 << 2 // CLOSE_RANGE_CLOEXEC

	var ret C.int
	if uint(first) <= connFd && connFd <= uint(last) {
		if connFd > uint(first) {
			ret = C.fb_real_close_range(first, C.uint(connFd-1), flags)
		}
		if connFd < uint(last) && ret == 0 {
			ret = C.fb_real_close_range(C.uint(connFd+1), last, flags)
		}
	} else {
		ret = C.fb_real_close_range(first, last, flags)
	}

	if ret == 0 {
		h.CloseRangeAfter(int(first), int(last), int(flags)&cloexecFlag != 0)
	}
	return ret
}
