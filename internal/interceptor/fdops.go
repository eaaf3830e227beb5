package interceptor

import (
	"github.com/firebuild-go/fbcore"
	"github.com/firebuild-go/fbcore/internal/fbb"
)

// OpenResult is what the open/openat/creat wrappers report after the
// real libc call returns.
type OpenResult struct {
	Dirfd       int
	Pathname    string
	Flags       int
	Mode        int
	Ret         int
	PreOpenSent bool
}

// ReportOpen sends the open message, awaiting its ack unless pathname
// resolves under one of the configured system/ignore locations.
func (h *Hooks) ReportOpen(r OpenResult) error {
	b := fbb.NewBuilder(fbb.Open)
	b.SetInt("dirfd", int64(r.Dirfd))
	b.SetString("pathname", r.Pathname)
	b.SetInt("flags", int64(r.Flags))
	b.SetInt("mode", int64(r.Mode))
	b.SetInt("ret", int64(r.Ret))
	if r.PreOpenSent {
		b.SetInt("pre_open_sent", 1)
	} else {
		b.SetInt("pre_open_sent", 0)
	}
	if r.Ret >= 0 {
		h.FDs.Clear(r.Ret)
	}

	if h.Config.UnderSystemLocation(r.Pathname) {
		return h.send(b)
	}
	_, err := h.sendAcked(b)
	return err
}

// ReportClose implements the close() wrapper's routing decision: pipe
// endpoints go over the socket preceded by a barrier (so the supervisor's
// libevent watches update in order); everything else goes out lock-free
// on shmq without an ack.
func (h *Hooks) ReportClose(fd int) error {
	b := fbb.NewBuilder(fbb.Close)
	b.SetInt("fd", int64(fd))

	pipe := h.FDs.Get(fd).IsPipeEndpoint
	h.FDs.Clear(fd)
	if pipe {
		if err := h.sendBarrier(); err != nil {
			return err
		}
		_, err := h.sendAcked(b)
		return err
	}
	return h.send(b)
}

// Dup2Before returns whether newfd collides with the supervisor
// connection fd. cmd/fbpreload's dup2/dup3 wrappers refuse such a call
// with EBADF; the connection is not relocated.
func (h *Hooks) Dup2Before(newfd int) (mustRelocateConn bool) {
	return newfd == h.Identity.ConnFd()
}

// Dup2After updates per-fd state on a successful dup2/dup3; does nothing
// on failure.
func (h *Hooks) Dup2After(oldfd, newfd int, success bool) {
	if !success {
		return
	}
	h.FDs.Move(oldfd, newfd)
}

// ClosedConnRelocated lets the caller tell Hooks the connection fd moved,
// after performing the dup+FD_CLOEXEC+dup2 dance Dup2Before signaled.
func (h *Hooks) ClosedConnRelocated(newConnFd int) {
	h.Identity.SetConnFd(newConnFd)
}

// PipeRequestResult is what PipeRequest returns: either an errno, or the
// two fds the supervisor handed back via SCM_RIGHTS.
type PipeRequestResult struct {
	Errno    int
	HasErrno bool
	Fd0      int
	Fd1      int
}

// RequestPipe asks the supervisor to create an intercepted pipe and
// returns its two ends via ancillary fd passing, marking both returned
// fds as pipe endpoints in the per-fd table on success.
func (h *Hooks) RequestPipe(flags int) (PipeRequestResult, error) {
	b := fbb.NewBuilder(fbb.PipeRequest)
	b.SetInt("flags", int64(flags))

	buf := make([]byte, b.Measure())
	b.Serialize(buf)

	id := h.Acks.Begin()
	if err := h.Conn.SendFDs(id, buf, nil); err != nil {
		h.Acks.Cancel(id)
		return PipeRequestResult{}, err
	}

	payload, fds, err := h.Acks.WaitFDs(id)
	if err != nil {
		return PipeRequestResult{}, err
	}

	msg, err := fbb.Parse(fbb.PipeCreated, payload)
	if err != nil {
		return PipeRequestResult{}, fbcore.WrapError("interceptor.RequestPipe", err)
	}

	if msg.HasInt("error_no") {
		return PipeRequestResult{Errno: int(msg.Int("error_no")), HasErrno: true}, nil
	}
	if len(fds) != 2 {
		return PipeRequestResult{}, fbcore.NewError("interceptor.RequestPipe", fbcore.ErrCodeMalformedMessage, "pipe_created success reply did not carry exactly two ancillary fds")
	}

	h.FDs.MarkPipeEndpoint(fds[0])
	h.FDs.MarkPipeEndpoint(fds[1])
	return PipeRequestResult{Fd0: fds[0], Fd1: fds[1]}, nil
}

// AnnouncePipeFds tells the supervisor which fd numbers the interceptor
// actually installed the pipe pair at, for its own bookkeeping.
func (h *Hooks) AnnouncePipeFds(fd0, fd1 int) error {
	b := fbb.NewBuilder(fbb.PipeFds)
	b.SetInt("fd0", int64(fd0))
	b.SetInt("fd1", int64(fd1))
	return h.send(b)
}

// CloseRangeAfter clears per-fd state for [lo, hi] after a successful
// close_range/closefrom, honoring CLOSE_RANGE_CLOEXEC's "don't actually
// close, just mark cloexec" semantics.
func (h *Hooks) CloseRangeAfter(lo, hi int, cloexecOnly bool) {
	h.FDs.ClearRange(lo, hi, cloexecOnly)
}

// NoteRead/NoteWrite/NoteSeek report the corresponding *_from_inherited
// message only on the first occurrence per fd per kind.
func (h *Hooks) NoteRead(fd int, positioned bool) error {
	if !h.FDs.NoteRead(fd, positioned) {
		return nil
	}
	b := fbb.NewBuilder(fbb.ReadFromInherited)
	b.SetInt("fd", int64(fd))
	return h.send(b)
}

func (h *Hooks) NoteWrite(fd int, positioned bool) error {
	if !h.FDs.NoteWrite(fd, positioned) {
		return nil
	}
	b := fbb.NewBuilder(fbb.WriteToInherited)
	b.SetInt("fd", int64(fd))
	return h.send(b)
}

func (h *Hooks) NoteSeek(fd int, isTell bool) error {
	if !h.FDs.NoteSeek(fd, isTell) {
		return nil
	}
	b := fbb.NewBuilder(fbb.SeekInInherited)
	b.SetInt("fd", int64(fd))
	return h.send(b)
}

// ReportRecvmsgRights reports fds that arrived as SCM_RIGHTS ancillary
// data on a recvmsg/recvmmsg the interceptor observed.
func (h *Hooks) ReportRecvmsgRights(fds []int, cloexec bool) error {
	if len(fds) == 0 {
		return nil
	}
	b := fbb.NewBuilder(fbb.RecvmsgScmRights)
	int64fds := make([]int64, len(fds))
	for i, fd := range fds {
		int64fds[i] = int64(fd)
	}
	b.SetIntArray("fds", int64fds)
	if cloexec {
		b.SetInt("cloexec", 1)
	} else {
		b.SetInt("cloexec", 0)
	}
	return h.send(b)
}

// reportableFcntlCmds is the allowlist of commands that can
// affect visible behavior. Anything else is silent.
var reportableFcntlCmds = map[int]bool{
	fcntlFSetFD:        true,
	fcntlFDupFD:        true,
	fcntlFDupFDCloexec: true,
	fcntlFGetPath:      true,
	ioctlFIOCLEX:       true,
	ioctlFIONCLEX:      true,
}

const (
	fcntlFSetFD        = 2
	fcntlFDupFD        = 0
	fcntlFDupFDCloexec = 1030
	fcntlFGetPath      = 50 // platform-specific; only meaningful where defined
	ioctlFIOCLEX       = 0x5451
	ioctlFIONCLEX      = 0x5450
)

// ReportFcntl reports fd's fcntl/ioctl call only if cmd is in the
// allowlist of commands that can affect visible behavior.
func (h *Hooks) ReportFcntl(fd, cmd int, arg int64, hasArg bool) error {
	if !reportableFcntlCmds[cmd] {
		return nil
	}
	b := fbb.NewBuilder(fbb.Fcntl)
	b.SetInt("fd", int64(fd))
	b.SetInt("cmd", int64(cmd))
	if hasArg {
		b.SetInt("arg", arg)
	}
	return h.send(b)
}
