//go:build linux && cgo

// Command fbpreload builds as a cgo c-shared library (`go build
// -buildmode=c-shared`) meant to be named into LD_PRELOAD ahead of every
// process a build spawns. Its exported symbols shadow the libc entry
// points named in the call-interceptor family of the protocol; each one
// resolves and caches the real libc implementation via dlsym(RTLD_NEXT,
// ...) on first use, then follows the twelve-step wrapper protocol:
// guard the connection fd, check whether interception is on, take the
// global lock, enter the signal danger zone, do "before" work, invoke
// the real libc call, compute success, do "after" work, report to the
// supervisor, wait for an ack if required, leave the danger zone, and
// release the lock.
//
// Every call family internal/interceptor implements has a corresponding
// exported C shadow symbol here or in one of this package's other
// wrappers_*.go files: open, close, read, write, dup2, dup3, pipe2,
// execve, fork, system, popen, pclose, exit, posix_spawn and its
// file-actions shadow table, dlopen, readlink, fcntl/ioctl, close_range,
// and signal(2)/sigaction(2) (through the trampoline in
// wrappers_signal.go). openat/creat and execv/execvp/execl*/fexecve have
// no shadow of their own and are not wrapped.
package main

/*
#cgo LDFLAGS: -ldl
#define _GNU_SOURCE
#include <dlfcn.h>
#include <stdlib.h>
#include <stdarg.h>
#include <unistd.h>
#include <fcntl.h>
#include <stdio.h>
#include <sys/wait.h>
#include <sys/ioctl.h>
#include <spawn.h>
#include <link.h>
#include <signal.h>

// Every real libc entry point this library shadows is resolved once,
// lazily, via dlsym(RTLD_NEXT, ...): the very first call to each symbol
// pays the resolution cost, every call after reuses the cached pointer.
// The shadow functions below are what actually ends up at the "open",
// "close", etc. symbols once this library is LD_PRELOADed; each one
// forwards to a Go callback (exported under an fb_go_-prefixed name to
// avoid ever colliding with a libc symbol) that implements the wrapper
// protocol and, in turn, calls back into one of these for the real libc
// work.
typedef int (*fb_open_fn)(const char *, int, mode_t);
typedef int (*fb_close_fn)(int);
typedef long (*fb_read_fn)(int, void *, size_t);
typedef long (*fb_write_fn)(int, const void *, size_t);
typedef int (*fb_dup2_fn)(int, int);
typedef int (*fb_pipe2_fn)(int *, int);
typedef int (*fb_execve_fn)(const char *, char *const *, char *const *);
typedef pid_t (*fb_fork_fn)(void);
typedef int (*fb_system_fn)(const char *);
typedef FILE *(*fb_popen_fn)(const char *, const char *);
typedef int (*fb_pclose_fn)(FILE *);
typedef int (*fb_posix_spawn_fn)(pid_t *, const char *, const posix_spawn_file_actions_t *,
                                  const posix_spawnattr_t *, char *const[], char *const[]);
typedef void (*fb_exit_fn)(int);
typedef int (*fb_psfa_init_fn)(posix_spawn_file_actions_t *);
typedef int (*fb_psfa_destroy_fn)(posix_spawn_file_actions_t *);
typedef int (*fb_psfa_addopen_fn)(posix_spawn_file_actions_t *, int, const char *, int, mode_t);
typedef int (*fb_psfa_addclose_fn)(posix_spawn_file_actions_t *, int);
typedef int (*fb_psfa_adddup2_fn)(posix_spawn_file_actions_t *, int, int);
typedef void *(*fb_dlopen_fn)(const char *, int);
typedef ssize_t (*fb_readlink_fn)(const char *, char *, size_t);
typedef int (*fb_fcntl_fn)(int, int, long);
typedef int (*fb_ioctl_fn)(int, unsigned long, long);
typedef int (*fb_close_range_fn)(unsigned int, unsigned int, int);
typedef int (*fb_dup3_fn)(int, int, int);
typedef int (*fb_sigaction_fn)(int, const struct sigaction *, struct sigaction *);
typedef void (*fb_sighandler_fn)(int);
typedef fb_sighandler_fn (*fb_signal_fn)(int, fb_sighandler_fn);

static fb_open_fn fb_orig_open_p;
static fb_close_fn fb_orig_close_p;
static fb_read_fn fb_orig_read_p;
static fb_write_fn fb_orig_write_p;
static fb_dup2_fn fb_orig_dup2_p;
static fb_pipe2_fn fb_orig_pipe2_p;
static fb_execve_fn fb_orig_execve_p;
static fb_fork_fn fb_orig_fork_p;
static fb_system_fn fb_orig_system_p;
static fb_popen_fn fb_orig_popen_p;
static fb_pclose_fn fb_orig_pclose_p;
static fb_posix_spawn_fn fb_orig_posix_spawn_p;
static fb_exit_fn fb_orig_exit_p;
static fb_psfa_init_fn fb_orig_psfa_init_p;
static fb_psfa_destroy_fn fb_orig_psfa_destroy_p;
static fb_psfa_addopen_fn fb_orig_psfa_addopen_p;
static fb_psfa_addclose_fn fb_orig_psfa_addclose_p;
static fb_psfa_adddup2_fn fb_orig_psfa_adddup2_p;
static fb_dlopen_fn fb_orig_dlopen_p;
static fb_readlink_fn fb_orig_readlink_p;
static fb_fcntl_fn fb_orig_fcntl_p;
static fb_ioctl_fn fb_orig_ioctl_p;
static fb_close_range_fn fb_orig_close_range_p;
static fb_dup3_fn fb_orig_dup3_p;
static fb_sigaction_fn fb_orig_sigaction_p;
static fb_signal_fn fb_orig_signal_p;

// fb_user_handlers holds the application's own handler for each signal
// number, installed via our sigaction()/signal() shadows instead of
// directly with the kernel; fb_signal_trampoline is what the kernel
// actually calls, and invokes the stashed handler itself only when the Go
// side says the danger zone is clear. Go cannot call an arbitrary foreign
// function pointer, so this indirection table and the actual call have to
// live on the C side.
#define FB_MAX_SIGNUM 64
static fb_sighandler_fn fb_user_handlers[FB_MAX_SIGNUM];

extern int fb_go_signal_should_run(int);
extern void fb_go_signal_done(int);

static void fb_signal_trampoline(int signum) {
	if (signum < 0 || signum >= FB_MAX_SIGNUM) {
		return;
	}
	if (!fb_go_signal_should_run(signum)) {
		return;
	}
	fb_sighandler_fn handler = fb_user_handlers[signum];
	if (handler != NULL && handler != SIG_IGN && handler != SIG_DFL) {
		handler(signum);
	}
	fb_go_signal_done(signum);
}

static void fb_resolve_all(void) {
	fb_orig_open_p = (fb_open_fn)dlsym(RTLD_NEXT, "open");
	fb_orig_close_p = (fb_close_fn)dlsym(RTLD_NEXT, "close");
	fb_orig_read_p = (fb_read_fn)dlsym(RTLD_NEXT, "read");
	fb_orig_write_p = (fb_write_fn)dlsym(RTLD_NEXT, "write");
	fb_orig_dup2_p = (fb_dup2_fn)dlsym(RTLD_NEXT, "dup2");
	fb_orig_pipe2_p = (fb_pipe2_fn)dlsym(RTLD_NEXT, "pipe2");
	fb_orig_execve_p = (fb_execve_fn)dlsym(RTLD_NEXT, "execve");
	fb_orig_fork_p = (fb_fork_fn)dlsym(RTLD_NEXT, "fork");
	fb_orig_system_p = (fb_system_fn)dlsym(RTLD_NEXT, "system");
	fb_orig_popen_p = (fb_popen_fn)dlsym(RTLD_NEXT, "popen");
	fb_orig_pclose_p = (fb_pclose_fn)dlsym(RTLD_NEXT, "pclose");
	fb_orig_posix_spawn_p = (fb_posix_spawn_fn)dlsym(RTLD_NEXT, "posix_spawn");
	fb_orig_exit_p = (fb_exit_fn)dlsym(RTLD_NEXT, "exit");
	fb_orig_psfa_init_p = (fb_psfa_init_fn)dlsym(RTLD_NEXT, "posix_spawn_file_actions_init");
	fb_orig_psfa_destroy_p = (fb_psfa_destroy_fn)dlsym(RTLD_NEXT, "posix_spawn_file_actions_destroy");
	fb_orig_psfa_addopen_p = (fb_psfa_addopen_fn)dlsym(RTLD_NEXT, "posix_spawn_file_actions_addopen");
	fb_orig_psfa_addclose_p = (fb_psfa_addclose_fn)dlsym(RTLD_NEXT, "posix_spawn_file_actions_addclose");
	fb_orig_psfa_adddup2_p = (fb_psfa_adddup2_fn)dlsym(RTLD_NEXT, "posix_spawn_file_actions_adddup2");
	fb_orig_dlopen_p = (fb_dlopen_fn)dlsym(RTLD_NEXT, "dlopen");
	fb_orig_readlink_p = (fb_readlink_fn)dlsym(RTLD_NEXT, "readlink");
	fb_orig_fcntl_p = (fb_fcntl_fn)dlsym(RTLD_NEXT, "fcntl");
	fb_orig_ioctl_p = (fb_ioctl_fn)dlsym(RTLD_NEXT, "ioctl");
	fb_orig_close_range_p = (fb_close_range_fn)dlsym(RTLD_NEXT, "close_range");
	fb_orig_dup3_p = (fb_dup3_fn)dlsym(RTLD_NEXT, "dup3");
	fb_orig_sigaction_p = (fb_sigaction_fn)dlsym(RTLD_NEXT, "sigaction");
	fb_orig_signal_p = (fb_signal_fn)dlsym(RTLD_NEXT, "signal");
}

// fb_real_* are what the Go-side wrapper logic calls once it has decided
// the real libc call must actually happen.
int fb_real_open(const char *path, int flags, mode_t mode) { return fb_orig_open_p(path, flags, mode); }
int fb_real_close(int fd) { return fb_orig_close_p(fd); }
long fb_real_read(int fd, void *buf, size_t count) { return fb_orig_read_p(fd, buf, count); }
long fb_real_write(int fd, const void *buf, size_t count) { return fb_orig_write_p(fd, buf, count); }
int fb_real_dup2(int oldfd, int newfd) { return fb_orig_dup2_p(oldfd, newfd); }
int fb_real_pipe2(int *fds, int flags) { return fb_orig_pipe2_p(fds, flags); }
int fb_real_execve(const char *path, char *const *argv, char *const *envp) {
	return fb_orig_execve_p(path, argv, envp);
}
pid_t fb_real_fork(void) { return fb_orig_fork_p(); }
int fb_real_system(const char *command) { return fb_orig_system_p(command); }
FILE *fb_real_popen(const char *command, const char *type) { return fb_orig_popen_p(command, type); }
int fb_real_pclose(FILE *stream) { return fb_orig_pclose_p(stream); }
int fb_real_posix_spawn(pid_t *pid, const char *path, const posix_spawn_file_actions_t *acts,
                         const posix_spawnattr_t *attr, char *const argv[], char *const envp[]) {
	return fb_orig_posix_spawn_p(pid, path, acts, attr, argv, envp);
}
void fb_real_exit(int status) { fb_orig_exit_p(status); }
int fb_real_psfa_init(posix_spawn_file_actions_t *acts) { return fb_orig_psfa_init_p(acts); }
int fb_real_psfa_destroy(posix_spawn_file_actions_t *acts) { return fb_orig_psfa_destroy_p(acts); }
int fb_real_psfa_addopen(posix_spawn_file_actions_t *acts, int fd, const char *path, int flags, mode_t mode) {
	return fb_orig_psfa_addopen_p(acts, fd, path, flags, mode);
}
int fb_real_psfa_addclose(posix_spawn_file_actions_t *acts, int fd) { return fb_orig_psfa_addclose_p(acts, fd); }
int fb_real_psfa_adddup2(posix_spawn_file_actions_t *acts, int oldfd, int newfd) {
	return fb_orig_psfa_adddup2_p(acts, oldfd, newfd);
}
void *fb_real_dlopen(const char *name, int flags) { return fb_orig_dlopen_p(name, flags); }
ssize_t fb_real_readlink(const char *path, char *buf, size_t bufsiz) {
	return fb_orig_readlink_p(path, buf, bufsiz);
}
int fb_real_fcntl(int fd, int cmd, long arg) { return fb_orig_fcntl_p(fd, cmd, arg); }
int fb_real_ioctl(int fd, unsigned long req, long arg) { return fb_orig_ioctl_p(fd, req, arg); }
int fb_real_close_range(unsigned int first, unsigned int last, int flags) {
	return fb_orig_close_range_p(first, last, flags);
}
int fb_real_dup3(int oldfd, int newfd, int flags) { return fb_orig_dup3_p(oldfd, newfd, flags); }

// fb_install_trampoline installs fb_signal_trampoline as signum's real
// kernel-facing handler (preserving act's flags/mask), stashes
// newHandler as the user handler fb_signal_trampoline will call, and
// fills oldact through sigaction(2); when the kernel reports the
// trampoline there, oldact's handler is replaced with the stashed user
// handler. Returns the underlying sigaction(2) return value.
int fb_install_trampoline(int signum, const struct sigaction *act, struct sigaction *oldact) {
	struct sigaction newact;
	if (act != NULL) {
		newact = *act;
		newact.sa_handler = fb_signal_trampoline;
		newact.sa_flags &= ~SA_SIGINFO;
	}
	int ret = fb_orig_sigaction_p(signum, act != NULL ? &newact : NULL, oldact);
	if (ret == 0 && oldact != NULL && oldact->sa_handler == fb_signal_trampoline && signum >= 0 && signum < FB_MAX_SIGNUM) {
		oldact->sa_handler = fb_user_handlers[signum];
	}
	if (ret == 0 && act != NULL && signum >= 0 && signum < FB_MAX_SIGNUM) {
		fb_user_handlers[signum] = act->sa_handler;
	}
	return ret;
}

fb_sighandler_fn fb_install_signal(int signum, fb_sighandler_fn handler) {
	fb_sighandler_fn previous = (signum >= 0 && signum < FB_MAX_SIGNUM) ? fb_user_handlers[signum] : NULL;
	fb_sighandler_fn ret;
	if (handler == SIG_IGN || handler == SIG_DFL) {
		ret = fb_orig_signal_p(signum, handler);
	} else {
		ret = fb_orig_signal_p(signum, fb_signal_trampoline);
	}
	if (ret != SIG_ERR && signum >= 0 && signum < FB_MAX_SIGNUM) {
		fb_user_handlers[signum] = handler;
	}
	return (ret == fb_signal_trampoline) ? previous : ret;
}

// fb_dlinfo_linkmap_path resolves a successfully dlopen()'d handle's
// absolute path via dlinfo(RTLD_DI_LINKMAP), the same mechanism the
// wrapper protocol names for reporting the loaded image's resolved path.
// Returns NULL if dlinfo itself fails; the Go side folds that into "no
// resolved path available" rather than surfacing an error.
const char *fb_dlinfo_linkmap_path(void *handle) {
	struct link_map *lm = NULL;
	if (dlinfo(handle, RTLD_DI_LINKMAP, &lm) != 0 || lm == NULL) {
		return NULL;
	}
	return lm->l_name;
}

extern int fb_go_open(char *, int, mode_t);
extern int fb_go_close(int);
extern long fb_go_read(int, void *, size_t);
extern long fb_go_write(int, void *, size_t);
extern int fb_go_dup2(int, int);
extern int fb_go_pipe2(int *, int);
extern int fb_go_execve(char *, char **, char **);
extern pid_t fb_go_fork(void);
extern int fb_go_system(char *);
extern FILE *fb_go_popen(char *, char *);
extern int fb_go_pclose(FILE *);
extern void fb_go_exit(int);
extern int fb_go_posix_spawn(pid_t *, char *, posix_spawn_file_actions_t *, posix_spawnattr_t *, char **, char **);
extern int fb_go_psfa_init(posix_spawn_file_actions_t *);
extern int fb_go_psfa_destroy(posix_spawn_file_actions_t *);
extern int fb_go_psfa_addopen(posix_spawn_file_actions_t *, int, char *, int, mode_t);
extern int fb_go_psfa_addclose(posix_spawn_file_actions_t *, int);
extern int fb_go_psfa_adddup2(posix_spawn_file_actions_t *, int, int);
extern void *fb_go_dlopen(char *, int);
extern long fb_go_readlink(char *, char *, size_t);
extern int fb_go_fcntl(int, int, long);
extern int fb_go_ioctl(int, unsigned long, long);
extern int fb_go_close_range(unsigned int, unsigned int, int);
extern int fb_go_dup3(int, int, int);
extern int fb_go_sigaction(int, struct sigaction *, struct sigaction *);
extern fb_sighandler_fn fb_go_signal(int, fb_sighandler_fn);

int open(const char *path, int flags, ...) {
	mode_t mode = 0;
	if (flags & O_CREAT) {
		va_list args;
		va_start(args, flags);
		mode = (mode_t)va_arg(args, int);
		va_end(args);
	}
	return fb_go_open((char *)path, flags, mode);
}
int close(int fd) { return fb_go_close(fd); }
ssize_t read(int fd, void *buf, size_t count) { return (ssize_t)fb_go_read(fd, buf, count); }
ssize_t write(int fd, const void *buf, size_t count) { return (ssize_t)fb_go_write(fd, (void *)buf, count); }
int dup2(int oldfd, int newfd) { return fb_go_dup2(oldfd, newfd); }
int pipe2(int fds[2], int flags) { return fb_go_pipe2(fds, flags); }
int execve(const char *path, char *const argv[], char *const envp[]) {
	return fb_go_execve((char *)path, (char **)argv, (char **)envp);
}
pid_t fork(void) { return fb_go_fork(); }
int system(const char *command) { return fb_go_system((char *)command); }
FILE *popen(const char *command, const char *type) { return fb_go_popen((char *)command, (char *)type); }
int pclose(FILE *stream) { return fb_go_pclose(stream); }
void exit(int status) { fb_go_exit(status); __builtin_unreachable(); }
int posix_spawn(pid_t *pid, const char *path, const posix_spawn_file_actions_t *acts,
                 const posix_spawnattr_t *attr, char *const argv[], char *const envp[]) {
	return fb_go_posix_spawn(pid, (char *)path, (posix_spawn_file_actions_t *)acts,
	                          (posix_spawnattr_t *)attr, (char **)argv, (char **)envp);
}
int posix_spawn_file_actions_init(posix_spawn_file_actions_t *acts) { return fb_go_psfa_init(acts); }
int posix_spawn_file_actions_destroy(posix_spawn_file_actions_t *acts) { return fb_go_psfa_destroy(acts); }
int posix_spawn_file_actions_addopen(posix_spawn_file_actions_t *acts, int fd, const char *path, int flags, mode_t mode) {
	return fb_go_psfa_addopen(acts, fd, (char *)path, flags, mode);
}
int posix_spawn_file_actions_addclose(posix_spawn_file_actions_t *acts, int fd) {
	return fb_go_psfa_addclose(acts, fd);
}
int posix_spawn_file_actions_adddup2(posix_spawn_file_actions_t *acts, int oldfd, int newfd) {
	return fb_go_psfa_adddup2(acts, oldfd, newfd);
}
void *dlopen(const char *name, int flags) { return fb_go_dlopen((char *)name, flags); }
ssize_t readlink(const char *path, char *buf, size_t bufsiz) {
	return (ssize_t)fb_go_readlink((char *)path, buf, bufsiz);
}
int fcntl(int fd, int cmd, ...) {
	long arg = 0;
	va_list args;
	va_start(args, cmd);
	arg = va_arg(args, long);
	va_end(args);
	return fb_go_fcntl(fd, cmd, arg);
}
int ioctl(int fd, unsigned long req, ...) {
	long arg = 0;
	va_list args;
	va_start(args, req);
	arg = va_arg(args, long);
	va_end(args);
	return fb_go_ioctl(fd, req, arg);
}
int close_range(unsigned int first, unsigned int last, int flags) {
	return fb_go_close_range(first, last, flags);
}
int dup3(int oldfd, int newfd, int flags) { return fb_go_dup3(oldfd, newfd, flags); }
int sigaction(int signum, const struct sigaction *act, struct sigaction *oldact) {
	return fb_go_sigaction(signum, (struct sigaction *)act, oldact);
}
fb_sighandler_fn signal(int signum, fb_sighandler_fn handler) {
	return fb_go_signal(signum, handler);
}
*/
import "C"

import (
	"os"
	"sync/atomic"

	"github.com/firebuild-go/fbcore/internal/config"
	"github.com/firebuild-go/fbcore/internal/constants"
	"github.com/firebuild-go/fbcore/internal/interceptor"
	"github.com/firebuild-go/fbcore/internal/logging"
	"github.com/firebuild-go/fbcore/internal/procstate"
	"github.com/firebuild-go/fbcore/internal/shmq"
	"github.com/firebuild-go/fbcore/internal/sidechannel"
)

// hooksPtr holds this process's single interceptor.Hooks instance. It is
// replaced wholesale (not mutated) by setHooks from loadForPid, at startup
// and again in a fork child through reconnectAfterFork, so a goroutine that
// captured a *Hooks before a fork observes the pre-fork state consistently
// rather than a half-updated one. fb_go_signal_should_run and
// fb_go_signal_done reach currentHooks from inside a genuine POSIX signal
// handler (the C trampoline's direct call, not a goroutine), so the pointer
// is an atomic.Pointer: its load and store take no lock and make no syscall.
var hooksPtr atomic.Pointer[interceptor.Hooks]

func currentHooks() *interceptor.Hooks {
	return hooksPtr.Load()
}

func setHooks(h *interceptor.Hooks) {
	hooksPtr.Store(h)
}

// main is required by -buildmode=c-shared but never runs; every entry
// point the application calls arrives through the exported C symbols
// below instead.
func main() {}

func init() {
	C.fb_resolve_all()
	load()
}

// load performs the interceptor's startup sequence: read the environment,
// create this process's shmq writer, connect to the supervisor, and
// perform the scproc_query/scproc_resp handshake. If the supervisor
// shortcuts this invocation outright, the process _exit()s here and the
// application's own main() never runs.
func load() {
	logging.SetDefault(logging.NewLogger(logging.DefaultConfig()))
	cfg := config.Load()
	if cfg.Socket == "" {
		// Not running under firebuild (FB_SOCKET unset): every wrapper
		// below checks Intercepting() and is a no-op without a live Hooks.
		return
	}
	loadForPid(os.Getpid(), os.Getppid(), false)
}

// loadForPid builds a fresh connection, shmq writer and Hooks for pid,
// shared by both the process's own startup (forkChild=false, performs
// scproc_query) and a freshly forked child rebuilding its interceptor
// state from scratch (forkChild=true, performs fork_child instead).
func loadForPid(pid, ppid int, forkChild bool) {
	cfg := config.Load()
	if cfg.Socket == "" {
		return
	}

	writer, err := shmq.NewWriter(constants.ShmqRegionName(pid))
	if err != nil {
		fatalAbort("fbpreload.loadForPid: creating shmq region", err)
	}

	conn, err := sidechannel.Dial(cfg.SocketPath())
	if err != nil {
		fatalAbort("fbpreload.loadForPid: connecting to supervisor", err)
	}

	identity := procstate.NewIdentity(conn.Fd(), cfg.SocketPath(), pid, ppid, cfg.LDLibraryPath)
	h := interceptor.NewHooks(cfg, conn, writer, identity)
	go runAckReader(h)

	if forkChild {
		if err := h.ForkChildHandshake(pid, ppid); err != nil {
			fatalAbort("fbpreload.loadForPid: fork_child handshake", err)
		}
		setHooks(h)
		return
	}

	cwd, _ := os.Getwd()
	resp, err := h.Handshake(interceptor.ProcessInfo{
		Pid:        pid,
		Ppid:       ppid,
		Cwd:        cwd,
		Executable: executablePath(),
		Argv:       os.Args,
		Env:        os.Environ(),
		Libs:       loadedLibraries(),
	})
	if err != nil {
		fatalAbort("fbpreload.loadForPid: scproc_query handshake", err)
	}
	if resp.Shortcut {
		os.Exit(int(resp.ExitStatus))
	}

	setHooks(h)
}

// fatalAbort implements the channel-failure policy: any core channel
// breaking is fatal to the interceptor, because the supervisor's view of
// the build is now inconsistent.
func fatalAbort(op string, err error) {
	logging.Default().Error("fbpreload: fatal channel error, aborting", "op", op, "error", err)
	os.Exit(127)
}

func executablePath() string {
	p, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return p
}

// loadedLibraries is a best-effort accounting of the shared libraries
// mapped into this process at interceptor-load time, read from
// /proc/self/maps the way a process inspects its own link map without a
// dedicated libc API. Real dlopen()'d images captured after this point
// are reported individually via ReportDlopen.
func loadedLibraries() []string {
	data, err := os.ReadFile("/proc/self/maps")
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var libs []string
	line := make([]byte, 0, 256)
	for _, b := range data {
		if b == '\n' {
			path := mapsLinePath(line)
			if path != "" && !seen[path] {
				seen[path] = true
				libs = append(libs, path)
			}
			line = line[:0]
			continue
		}
		line = append(line, b)
	}
	return libs
}

func mapsLinePath(line []byte) string {
	// /proc/self/maps lines end with the mapped file's path, if any,
	// after a run of whitespace-separated fixed fields.
	fields := 0
	i := 0
	for fields < 5 && i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		start := i
		for i < len(line) && line[i] != ' ' {
			i++
		}
		if i > start {
			fields++
		}
	}
	for i < len(line) && line[i] == ' ' {
		i++
	}
	if i >= len(line) || line[i] != '/' {
		return ""
	}
	return string(line[i:])
}
