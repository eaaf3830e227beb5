package interceptor

import (
	"github.com/firebuild-go/fbcore/internal/fbb"
)

// PosixSpawnBefore sends the posix_spawn message (file/argv/env plus the
// file-actions list shadowed in h.Spawns, keyed by the actions pointer
// the application passed) and waits for its ack before the caller invokes
// the real posix_spawn.
func (h *Hooks) PosixSpawnBefore(file string, argv, env []string, actionsKey uintptr) error {
	b := fbb.NewBuilder(fbb.PosixSpawn)
	b.SetString("file", file)
	b.SetStringArray("argv", argv)
	b.SetStringArray("env", h.FixupEnv(env))
	b.SetStringArray("file_actions", h.Spawns.Actions(actionsKey))
	_, err := h.sendAcked(b)
	return err
}

// PosixSpawnParent reports a successful posix_spawn's child pid. The
// supervisor is in an "expecting a child" state from PosixSpawnBefore, so
// unlike ForkParent this does not need an ack of its own in the happy
// path, but the failure path below does.
func (h *Hooks) PosixSpawnParent(pid int) error {
	b := fbb.NewBuilder(fbb.PosixSpawnParent)
	b.SetInt("pid", int64(pid))
	return h.send(b)
}

// PosixSpawnFailed reports a failed posix_spawn, acked because the
// supervisor must clear its "expecting a child" state before any further
// activity from this process is reported.
func (h *Hooks) PosixSpawnFailed(argv []string, errno int) error {
	b := fbb.NewBuilder(fbb.PosixSpawnFailed)
	b.SetStringArray("argv", argv)
	b.SetInt("error_no", int64(errno))
	_, err := h.sendAcked(b)
	return err
}
