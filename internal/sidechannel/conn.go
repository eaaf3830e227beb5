// Package sidechannel implements the AF_UNIX control connection between an
// intercepted process and the supervisor: a length-prefixed, acknowledged
// request/response stream carrying serialized fbb messages, plus an
// SCM_RIGHTS side door for handing file descriptors across the fork/exec
// boundary (pipe, popen, accepted connections).
package sidechannel

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/firebuild-go/fbcore"
	"github.com/firebuild-go/fbcore/internal/constants"
)

// Conn wraps one end of the control socket. Both the interceptor and the
// supervisor use the same framing; only the direction of most messages
// differs.
type Conn struct {
	fd int
}

// NewConn wraps an already-connected or already-accepted socket fd. The fd
// is not duped; closing the Conn closes it.
func NewConn(fd int) *Conn {
	return &Conn{fd: fd}
}

// Dial connects to the supervisor's listening socket at path.
func Dial(path string) (*Conn, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fbcore.NewErrorWithErrno("sidechannel.Dial", fbcore.ErrCodeSocketIO, err.(unix.Errno))
	}
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Connect(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fbcore.NewErrorWithErrno("sidechannel.Dial", fbcore.ErrCodeSocketIO, err.(unix.Errno))
	}
	return &Conn{fd: fd}, nil
}

// Listener wraps the supervisor's listening end of the control socket.
type Listener struct {
	fd int
}

// Listen binds and listens on path, removing any stale socket file left
// behind by a prior supervisor instance first.
func Listen(path string) (*Listener, error) {
	_ = unix.Unlink(path)

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fbcore.NewErrorWithErrno("sidechannel.Listen", fbcore.ErrCodeSocketIO, err.(unix.Errno))
	}
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fbcore.NewErrorWithErrno("sidechannel.Listen", fbcore.ErrCodeSocketIO, err.(unix.Errno))
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, fbcore.NewErrorWithErrno("sidechannel.Listen", fbcore.ErrCodeSocketIO, err.(unix.Errno))
	}
	return &Listener{fd: fd}, nil
}

// Fd returns the listening socket's fd, for registering with a polling ring.
func (l *Listener) Fd() int {
	return l.fd
}

// Accept accepts one pending connection, wrapping it as a Conn.
func (l *Listener) Accept() (*Conn, error) {
	fd, _, err := unix.Accept4(l.fd, unix.SOCK_CLOEXEC)
	if err != nil {
		return nil, fbcore.NewErrorWithErrno("sidechannel.Accept", fbcore.ErrCodeSocketIO, err.(unix.Errno))
	}
	return &Conn{fd: fd}, nil
}

// Close closes the listening socket.
func (l *Listener) Close() error {
	return unix.Close(l.fd)
}

// Fd returns the underlying file descriptor, for use with Sendmsg/Recvmsg
// ancillary-data helpers and with supervisor polling rings.
func (c *Conn) Fd() int {
	return c.fd
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return unix.Close(c.fd)
}

// WriteFrame sends one framed message: a 4-byte little-endian payload
// length, a 4-byte little-endian ack id, then the payload itself.
func (c *Conn) WriteFrame(ackID uint32, payload []byte) error {
	header := make([]byte, constants.FrameHeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[4:8], ackID)

	if err := writeFull(c.fd, header); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	return writeFull(c.fd, payload)
}

// ReadFrame reads one framed message, returning its ack id and payload.
func (c *Conn) ReadFrame() (ackID uint32, payload []byte, err error) {
	header := make([]byte, constants.FrameHeaderSize)
	if err := readFull(c.fd, header); err != nil {
		return 0, nil, err
	}

	length := binary.LittleEndian.Uint32(header[0:4])
	ackID = binary.LittleEndian.Uint32(header[4:8])

	if length == 0 {
		return ackID, nil, nil
	}
	payload = make([]byte, length)
	if err := readFull(c.fd, payload); err != nil {
		return 0, nil, err
	}
	return ackID, payload, nil
}

func writeFull(fd int, buf []byte) error {
	for len(buf) > 0 {
		n, err := unix.Write(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fbcore.NewErrorWithErrno("sidechannel.writeFull", fbcore.ErrCodeSocketIO, err.(unix.Errno))
		}
		buf = buf[n:]
	}
	return nil
}

func readFull(fd int, buf []byte) error {
	for len(buf) > 0 {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fbcore.NewErrorWithErrno("sidechannel.readFull", fbcore.ErrCodeSocketIO, err.(unix.Errno))
		}
		if n == 0 {
			return fbcore.NewError("sidechannel.readFull", fbcore.ErrCodeProcessGone, "peer closed the control socket")
		}
		buf = buf[n:]
	}
	return nil
}
