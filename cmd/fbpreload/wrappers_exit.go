//go:build linux && cgo

package main

/*
#include <stdlib.h>

extern void fb_real_exit(int);
*/
import "C"

import "syscall"

// fb_go_exit implements the single choke point every exit-family call
// funnels through here: exit(). _exit/_Exit/quick_exit/exit_group are not
// routed through libc's exit() and would need their own shadow symbols
// doing the same HandleExit call; they are a mechanical repeat of this.
//
//export fb_go_exit
func fb_go_exit(status C.int) {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		C.fb_real_exit(status)
		return
	}

	var ru syscall.Rusage
	_ = syscall.Getrusage(syscall.RUSAGE_SELF, &ru)
	utimeUs := int64(ru.Utime.Sec)*1_000_000 + int64(ru.Utime.Usec)
	stimeUs := int64(ru.Stime.Sec)*1_000_000 + int64(ru.Stime.Usec)

	_ = h.HandleExit(int(status), utimeUs, stimeUs)
	C.fb_real_exit(status)
}
