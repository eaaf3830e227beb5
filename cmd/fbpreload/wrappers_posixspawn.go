//go:build linux && cgo

package main

/*
#include <spawn.h>
#include <sys/types.h>

extern int fb_real_posix_spawn(pid_t *, const char *, const posix_spawn_file_actions_t *,
                                const posix_spawnattr_t *, char *const[], char *const[]);
extern int fb_real_psfa_init(posix_spawn_file_actions_t *);
extern int fb_real_psfa_destroy(posix_spawn_file_actions_t *);
extern int fb_real_psfa_addopen(posix_spawn_file_actions_t *, int, const char *, int, mode_t);
extern int fb_real_psfa_addclose(posix_spawn_file_actions_t *, int);
extern int fb_real_psfa_adddup2(posix_spawn_file_actions_t *, int, int);
*/
import "C"

import "unsafe"

// fb_go_psfa_init/_destroy/_addopen/_addclose/_adddup2 implement the
// posix_spawn_file_actions_t shadow table: the opaque C type is mutated
// by a sequence of adder calls before posix_spawn consumes it, so each
// one is mirrored into procstate.SpawnActionsPool keyed by the actions
// pointer's own address, alongside performing the real libc call the
// application expects.

//export fb_go_psfa_init
func fb_go_psfa_init(acts *C.posix_spawn_file_actions_t) C.int {
	ret := C.fb_real_psfa_init(acts)
	if ret == 0 {
		if h := currentHooks(); h != nil {
			h.Spawns.Init(uintptr(unsafe.Pointer(acts)))
		}
	}
	return ret
}

//export fb_go_psfa_destroy
func fb_go_psfa_destroy(acts *C.posix_spawn_file_actions_t) C.int {
	if h := currentHooks(); h != nil {
		h.Spawns.Destroy(uintptr(unsafe.Pointer(acts)))
	}
	return C.fb_real_psfa_destroy(acts)
}

//export fb_go_psfa_addopen
func fb_go_psfa_addopen(acts *C.posix_spawn_file_actions_t, fd C.int, path *C.char, flags C.int, mode C.mode_t) C.int {
	ret := C.fb_real_psfa_addopen(acts, fd, path, flags, mode)
	if ret == 0 {
		if h := currentHooks(); h != nil {
			h.Spawns.AddOpen(uintptr(unsafe.Pointer(acts)), int(fd), int(flags), int(mode), C.GoString(path))
		}
	}
	return ret
}

//export fb_go_psfa_addclose
func fb_go_psfa_addclose(acts *C.posix_spawn_file_actions_t, fd C.int) C.int {
	ret := C.fb_real_psfa_addclose(acts, fd)
	if ret == 0 {
		if h := currentHooks(); h != nil {
			h.Spawns.AddClose(uintptr(unsafe.Pointer(acts)), int(fd))
		}
	}
	return ret
}

//export fb_go_psfa_adddup2
func fb_go_psfa_adddup2(acts *C.posix_spawn_file_actions_t, oldfd, newfd C.int) C.int {
	ret := C.fb_real_psfa_adddup2(acts, oldfd, newfd)
	if ret == 0 {
		if h := currentHooks(); h != nil {
			h.Spawns.AddDup2(uintptr(unsafe.Pointer(acts)), int(oldfd), int(newfd))
		}
	}
	return ret
}

// fb_go_posix_spawn implements the posix_spawn family's wrapper: report
// the spawn request (including the replayed file-actions list), await
// its ack, run the real call, then report the resulting pid or failure.
//
//export fb_go_posix_spawn
func fb_go_posix_spawn(pid *C.pid_t, path *C.char, acts *C.posix_spawn_file_actions_t,
	attr *C.posix_spawnattr_t, argv, envp **C.char) C.int {
	h := currentHooks()
	if h == nil || !h.Intercepting() {
		return C.fb_real_posix_spawn(pid, path, acts, attr, argv, envp)
	}

	goPath := C.GoString(path)
	goArgv := cStringArray(argv)
	goEnv := cStringArray(envp)
	actionsKey := uintptr(unsafe.Pointer(acts))

	h.LockSystemPopen()
	defer h.UnlockSystemPopen()

	if err := h.PosixSpawnBefore(goPath, goArgv, goEnv, actionsKey); err != nil {
		return -1
	}

	fixedEnv := h.FixupEnv(goEnv)
	cEnvp := newCStringArray(fixedEnv)
	defer freeCStringArray(cEnvp)

	ret := C.fb_real_posix_spawn(pid, path, acts, attr, argv, (**C.char)(cEnvp))
	if ret == 0 {
		_ = h.PosixSpawnParent(int(*pid))
	} else {
		_ = h.PosixSpawnFailed(goArgv, int(ret))
	}
	return ret
}
