package supervisor

import (
	"golang.org/x/sys/unix"

	"github.com/firebuild-go/fbcore"
	"github.com/firebuild-go/fbcore/internal/constants"
	"github.com/firebuild-go/fbcore/internal/sidechannel"
	"github.com/firebuild-go/fbcore/internal/shmq"
)

// frameReadState tracks how much of the next frame a connection's socket
// has delivered so far, since the ring only promises "some bytes are
// readable," never "a whole frame is readable."
type frameReadState int

const (
	readingHeader frameReadState = iota
	readingPayload
)

// connection bundles one accepted interceptor process's socket and, once
// its scproc_query has named a pid, the shmq reader attached to that
// process's hot-path queue.
type connection struct {
	fd   int
	conn *sidechannel.Conn

	pid        int
	identified bool
	shmqReader *shmq.Reader

	state      frameReadState
	headerBuf  [constants.FrameHeaderSize]byte
	headerGot  int
	payloadLen uint32
	ackID      uint32
	payloadBuf []byte
	payloadGot int
}

func newConnection(c *sidechannel.Conn) (*connection, error) {
	if err := unix.SetNonblock(c.Fd(), true); err != nil {
		return nil, fbcore.NewErrorWithErrno("supervisor.newConnection", fbcore.ErrCodeSocketIO, err.(unix.Errno))
	}
	return &connection{fd: c.Fd(), conn: c}, nil
}

// readFrames drains every whole frame currently available on the
// connection's nonblocking socket, calling deliver for each one. It
// returns closed=true if the peer hung up or the socket errored, in which
// case the caller must tear the connection down.
func (c *connection) readFrames(deliver func(ackID uint32, payload []byte)) (closed bool, err error) {
	for {
		if c.state == readingHeader {
			n, rerr := unix.Read(c.fd, c.headerBuf[c.headerGot:])
			if rerr != nil {
				if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
					return false, nil
				}
				if rerr == unix.EINTR {
					continue
				}
				return true, fbcore.NewErrorWithErrno("supervisor.readFrames", fbcore.ErrCodeSocketIO, rerr.(unix.Errno))
			}
			if n == 0 {
				return true, nil
			}
			c.headerGot += n
			if c.headerGot < constants.FrameHeaderSize {
				continue
			}
			c.payloadLen = leUint32(c.headerBuf[0:4])
			c.ackID = leUint32(c.headerBuf[4:8])
			c.headerGot = 0
			if c.payloadLen == 0 {
				deliver(c.ackID, nil)
				continue
			}
			c.payloadBuf = make([]byte, c.payloadLen)
			c.payloadGot = 0
			c.state = readingPayload
			continue
		}

		n, rerr := unix.Read(c.fd, c.payloadBuf[c.payloadGot:])
		if rerr != nil {
			if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
				return false, nil
			}
			if rerr == unix.EINTR {
				continue
			}
			return true, fbcore.NewErrorWithErrno("supervisor.readFrames", fbcore.ErrCodeSocketIO, rerr.(unix.Errno))
		}
		if n == 0 {
			return true, nil
		}
		c.payloadGot += n
		if c.payloadGot < int(c.payloadLen) {
			continue
		}
		payload := c.payloadBuf
		ackID := c.ackID
		c.payloadBuf = nil
		c.state = readingHeader
		deliver(ackID, payload)
	}
}

func (c *connection) close() {
	if c.shmqReader != nil {
		_ = c.shmqReader.Close()
	}
	_ = c.conn.Close()
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
