package interceptor

import (
	"github.com/firebuild-go/fbcore"
	"github.com/firebuild-go/fbcore/internal/fbb"
)

// SystemBefore sends the acked system message. The caller must hold
// LockSystemPopen for the whole system()/SystemAfter pair.
func (h *Hooks) SystemBefore(command string) error {
	b := fbb.NewBuilder(fbb.System)
	b.SetString("command", command)
	_, err := h.sendAcked(b)
	return err
}

// SystemAfter reports system()'s outcome, acked.
func (h *Hooks) SystemAfter(ret, errno int) error {
	b := fbb.NewBuilder(fbb.SystemRet)
	b.SetInt("ret", int64(ret))
	b.SetInt("error_no", int64(errno))
	_, err := h.sendAcked(b)
	return err
}

// PopenBefore sends the popen message. The caller must hold
// LockSystemPopen for the whole popen() call.
func (h *Hooks) PopenBefore(command, typ string) error {
	b := fbb.NewBuilder(fbb.Popen)
	b.SetString("command", command)
	b.SetString("type", typ)
	return h.send(b)
}

// PopenAfterSuccess reports the fd a successful popen() attached to its
// FILE*, then waits for the supervisor's popen_fd reply and returns the
// substitute fd carried as its sole ancillary descriptor. The caller
// dup2s/dup3s it into fd's place and records the stream in h.Popens.
func (h *Hooks) PopenAfterSuccess(fd int) (substituteFd int, err error) {
	b := fbb.NewBuilder(fbb.PopenParent)
	b.SetInt("fd", int64(fd))

	buf := make([]byte, b.Measure())
	b.Serialize(buf)

	id := h.Acks.Begin()
	if err := h.Conn.SendFDs(id, buf, nil); err != nil {
		h.Acks.Cancel(id)
		return 0, err
	}

	// The reply carries an ancillary fd: cmd/fbpreload's runAckReader
	// completes it with AckTable.CompleteFDs, and recvAckedFD waits for
	// it with AckTable.WaitFDs.
	return h.recvAckedFD(id)
}

// PopenFailed reports a failed popen(), acked (matches the error-path
// shape of the other child-creating families).
func (h *Hooks) PopenFailed(errno int) error {
	b := fbb.NewBuilder(fbb.PopenFailed)
	b.SetInt("error_no", int64(errno))
	_, err := h.sendAcked(b)
	return err
}

// PcloseBefore emits the synthetic close the supervisor must observe
// before the real pclose() is allowed to call wait4. After pclose-entry
// the application can no longer use the fd, so reporting its closure
// early here avoids a pclose/wait deadlock against the supervisor.
func (h *Hooks) PcloseBefore(fd int) error {
	if err := h.sendBarrier(); err != nil {
		return err
	}
	b := fbb.NewBuilder(fbb.Close)
	b.SetInt("fd", int64(fd))
	_, err := h.sendAcked(b)
	return err
}

// recvAckedFD is the ancillary-fd counterpart of AckTable.Wait: unlike ordinary acks, a popen_fd reply's payload is
// empty and its substance is the single fd that arrives with it, so it
// cannot be delivered through the plain byte-slice completion path.
func (h *Hooks) recvAckedFD(id uint32) (int, error) {
	_, fds, err := h.Acks.WaitFDs(id)
	if err != nil {
		return 0, err
	}
	if len(fds) != 1 {
		return 0, fbcore.NewError("interceptor.PopenAfterSuccess", fbcore.ErrCodeMalformedMessage, "popen_fd reply did not carry exactly one ancillary fd")
	}
	return fds[0], nil
}
