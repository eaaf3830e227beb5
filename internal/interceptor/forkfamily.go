package interceptor

import (
	"github.com/firebuild-go/fbcore/internal/fbb"
)

// ForkParent implements the parent side of fork/clone/vfork: once the
// kernel call returns successfully, report the child's pid without
// waiting for an ack.
func (h *Hooks) ForkParent(childPid int) error {
	b := fbb.NewBuilder(fbb.ForkParent)
	b.SetInt("child_pid", int64(childPid))
	return h.send(b)
}

// ForkChildHandshake implements the very first thing a forked/cloned
// child must do before the application regains control: reset all
// thread-local state, reconnect to the supervisor on a fresh connection
// (the caller has already done so and passes the new Hooks in), send
// fork_child, and await its ack. The child must
// not touch the supervisor socket before this completes.
func (h *Hooks) ForkChildHandshake(pid, ppid int) error {
	b := fbb.NewBuilder(fbb.ForkChild)
	b.SetInt("pid", int64(pid))
	b.SetInt("ppid", int64(ppid))
	_, err := h.sendAcked(b)
	return err
}
