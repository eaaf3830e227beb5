//go:build linux && cgo

package main

/*
extern void *fb_real_dlopen(const char *, int);
extern const char *fb_dlinfo_linkmap_path(void *);
*/
import "C"

import "unsafe"

// fb_go_dlopen implements the dlopen() wrapper: run the real call, then,
// on success, resolve the loaded image's absolute path via
// dlinfo(RTLD_DI_LINKMAP) and report both the request and the resolved
// path. A dlinfo failure after a successful dlopen is folded silently
// into "no resolved path available" rather than surfaced; the
// application may still see a spurious dlerror() message from our
// best-effort dlinfo call, an accepted trade-off.
//
//export fb_go_dlopen
func fb_go_dlopen(name *C.char, flags C.int) unsafe.Pointer {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_dlopen(name, flags)
	}

	goName := C.GoString(name)
	handle := C.fb_real_dlopen(name, flags)

	if handle != nil {
		h.EnterNestedCall()
		resolved := C.fb_dlinfo_linkmap_path(handle)
		h.LeaveNestedCall()
		if resolved != nil {
			_ = h.ReportDlopen(goName, C.GoString(resolved), true)
		} else {
			_ = h.ReportDlopen(goName, "", false)
		}
	} else {
		_ = h.ReportDlopen(goName, "", false)
	}

	return handle
}
