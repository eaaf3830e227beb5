//go:build linux && cgo

package main

/*
#include <stdlib.h>

extern int fb_real_execve(const char *, char *const *, char *const *);
*/
import "C"

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/firebuild-go/fbcore/internal/interceptor"
)

// fb_go_execve implements the exec family's before/after halves against
// execve specifically. Only execve is shadowed: execv/execvp/execl.../
// fexecve have no wrapper of their own and are not observed here.
//
//export fb_go_execve
func fb_go_execve(path *C.char, argv **C.char, envp **C.char) C.int {
	h := currentHooks()
	goPath := C.GoString(path)
	if h == nil || !h.Intercepting() {
		return C.fb_real_execve(path, argv, envp)
	}

	goArgv := cStringArray(argv)
	goEnv := cStringArray(envp)

	if err := h.ExecBefore(interceptor.ExecRequest{File: goPath, Argv: goArgv, Env: goEnv}, 0, 0); err != nil {
		setErrno(int(unix.EIO))
		return -1
	}

	fixedEnv := h.FixupEnv(goEnv)
	cEnvp := newCStringArray(fixedEnv)
	defer freeCStringArray(cEnvp)

	ret := C.fb_real_execve(path, argv, (**C.char)(cEnvp))
	// execve only returns on failure; a successful exec replaces this
	// process image and never reaches here.
	errno := getErrno()
	_ = h.ExecFailed(errno)
	return ret
}

// cStringArray reads a NULL-terminated argv/envp-style C array into a Go
// slice, as the exec and posix_spawn wrappers need to report it.
func cStringArray(p **C.char) []string {
	if p == nil {
		return nil
	}
	base := (*[1 << 20]*C.char)(unsafe.Pointer(p))
	var out []string
	for i := 0; base[i] != nil; i++ {
		out = append(out, C.GoString(base[i]))
	}
	return out
}

// newCStringArray allocates a NULL-terminated C array from ss; the
// caller owns the returned memory and must free it with
// freeCStringArray once the real libc call has used it.
func newCStringArray(ss []string) unsafe.Pointer {
	ptrSize := unsafe.Sizeof((*C.char)(nil))
	arr := C.malloc(C.size_t(len(ss)+1) * C.size_t(ptrSize))
	base := (*[1 << 20]*C.char)(arr)
	for i, s := range ss {
		base[i] = C.CString(s)
	}
	base[len(ss)] = nil
	return arr
}

func freeCStringArray(p unsafe.Pointer) {
	base := (*[1 << 20]*C.char)(p)
	for i := 0; base[i] != nil; i++ {
		C.free(unsafe.Pointer(base[i]))
	}
	C.free(p)
}
