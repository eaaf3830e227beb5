package sidechannel

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/firebuild-go/fbcore"
	"github.com/firebuild-go/fbcore/internal/constants"
)

// SendFDs sends payload as an ordinary frame alongside fds as ancillary
// data, in a single sendmsg(2) call. The receiving process must call
// RecvFDs in the same step of the protocol, or the fds are leaked into
// whatever read happens to come next.
func (c *Conn) SendFDs(ackID uint32, payload []byte, fds []int) error {
	header := make([]byte, constants.FrameHeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[4:8], ackID)
	full := append(header, payload...)

	oob := unix.UnixRights(fds...)
	if err := unix.Sendmsg(c.fd, full, oob, nil, 0); err != nil {
		return fbcore.NewErrorWithErrno("sidechannel.SendFDs", fbcore.ErrCodeSocketIO, err.(unix.Errno))
	}
	return nil
}

// RecvFDs reads one framed message together with any fds the sender
// attached via SendFDs.
func (c *Conn) RecvFDs(maxFDs int) (ackID uint32, payload []byte, fds []int, err error) {
	header := make([]byte, constants.FrameHeaderSize)
	oob := make([]byte, unix.CmsgSpace(maxFDs*4))

	n, oobn, _, _, err := unix.Recvmsg(c.fd, header, oob, 0)
	if err != nil {
		return 0, nil, nil, fbcore.NewErrorWithErrno("sidechannel.RecvFDs", fbcore.ErrCodeSocketIO, err.(unix.Errno))
	}
	if n == 0 {
		return 0, nil, nil, fbcore.NewError("sidechannel.RecvFDs", fbcore.ErrCodeProcessGone, "peer closed the control socket")
	}
	if n < constants.FrameHeaderSize {
		if err := readFull(c.fd, header[n:]); err != nil {
			return 0, nil, nil, err
		}
	}

	length := binary.LittleEndian.Uint32(header[0:4])
	ackID = binary.LittleEndian.Uint32(header[4:8])

	if oobn > 0 {
		cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			return 0, nil, nil, fbcore.NewError("sidechannel.RecvFDs", fbcore.ErrCodeMalformedMessage, "malformed SCM_RIGHTS control message")
		}
		for _, cmsg := range cmsgs {
			got, err := unix.ParseUnixRights(&cmsg)
			if err != nil {
				return 0, nil, nil, fbcore.NewError("sidechannel.RecvFDs", fbcore.ErrCodeMalformedMessage, "malformed SCM_RIGHTS fd list")
			}
			fds = append(fds, got...)
		}
	}

	if length == 0 {
		return ackID, nil, fds, nil
	}
	payload = make([]byte, length)
	if err := readFull(c.fd, payload); err != nil {
		return 0, nil, fds, err
	}
	return ackID, payload, fds, nil
}
