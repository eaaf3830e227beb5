package supervisor

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/firebuild-go/fbcore"
	"github.com/firebuild-go/fbcore/internal/constants"
	"github.com/firebuild-go/fbcore/internal/fbb"
	"github.com/firebuild-go/fbcore/internal/sidechannel"
	"github.com/firebuild-go/fbcore/internal/shmq"
)

// Dispatcher is the supervisor's event demultiplexer: it accepts new
// interceptor connections, reads framed messages from each process's
// socket and shmq (each Step handles socket events first, then drains
// every shmq; a barrier's socket-side reply is sent only after that
// connection's shmq has been drained), and replies with acks, shortcut decisions or fresh
// fds. It is the supervisor's single point of contact with every
// connected interceptor: accept one incoming event and dispatch it.
type Dispatcher struct {
	listener *sidechannel.Listener
	ring     Ring
	engine   CacheEngine

	conns map[int]*connection // fd -> connection
}

// NewDispatcher wires a listener and a ring into a running dispatch loop.
// The listener's fd is registered with the ring immediately.
func NewDispatcher(listener *sidechannel.Listener, ring Ring, engine CacheEngine) (*Dispatcher, error) {
	d := &Dispatcher{
		listener: listener,
		ring:     ring,
		engine:   engine,
		conns:    make(map[int]*connection),
	}
	if err := unix.SetNonblock(listener.Fd(), true); err != nil {
		return nil, fmt.Errorf("supervisor: set listener nonblocking: %w", err)
	}
	if err := ring.Add(listener.Fd(), uint64(listener.Fd())); err != nil {
		return nil, fmt.Errorf("supervisor: registering listener fd: %w", err)
	}
	return d, nil
}

// Close tears down every tracked connection and the ring itself.
func (d *Dispatcher) Close() error {
	for _, c := range d.conns {
		c.close()
	}
	return d.ring.Close()
}

// Step blocks up to timeoutMs waiting for socket readiness, dispatches
// whatever arrived, and then drains every connected process's shmq to
// completion (the hot path never signals the ring, so it is always
// polled once per Step regardless of what Wait returned).
func (d *Dispatcher) Step(timeoutMs int) error {
	events, err := d.ring.Wait(timeoutMs)
	if err != nil {
		return err
	}

	for _, ev := range events {
		fd := int(ev.UserData)
		if fd == d.listener.Fd() {
			d.acceptLoop()
			continue
		}
		c, ok := d.conns[fd]
		if !ok {
			continue
		}
		if ev.Readable {
			if closed, rerr := c.readFrames(func(ackID uint32, payload []byte) {
				d.handleSocketFrame(c, ackID, payload)
			}); closed || rerr != nil {
				d.dropConnection(c)
				continue
			}
		}
		if ev.HangUp || ev.Err {
			d.dropConnection(c)
		}
	}

	d.drainShmqs()
	return nil
}

// Run calls Step in a loop until stop reports true on each iteration (or
// forever if stop is nil). timeoutMs bounds how long each Step blocks
// with no socket activity, so the shmq hot path still gets polled
// regularly even when nothing arrives over the socket.
func (d *Dispatcher) Run(timeoutMs int, stop func() bool) error {
	for {
		if stop != nil && stop() {
			return nil
		}
		if err := d.Step(timeoutMs); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) acceptLoop() {
	for {
		raw, err := d.listener.Accept()
		if err != nil {
			fe, ok := err.(*fbcore.Error)
			if ok && fe.Errno == unix.EAGAIN {
				return
			}
			return
		}
		c, err := newConnection(raw)
		if err != nil {
			_ = raw.Close()
			continue
		}
		if err := d.ring.Add(c.fd, uint64(c.fd)); err != nil {
			c.close()
			continue
		}
		d.conns[c.fd] = c
	}
}

func (d *Dispatcher) dropConnection(c *connection) {
	_ = d.ring.Remove(c.fd)
	delete(d.conns, c.fd)
	c.close()
}

// handleSocketFrame dispatches one fully-received socket frame: the
// scproc_query handshake, pipe/popen fd requests, or any other ack'd
// message that just needs a bare reply once the engine has observed it.
func (d *Dispatcher) handleSocketFrame(c *connection, ackID uint32, payload []byte) {
	if payload == nil {
		return
	}
	msg, err := fbb.ParseAny(payload)
	if err != nil {
		return
	}

	switch msg.Tag() {
	case fbb.TagScprocQuery:
		d.handleScprocQuery(c, ackID, msg)
	case fbb.TagPipeRequest:
		d.handlePipeRequest(c, ackID, msg)
	case fbb.TagPopenParent:
		d.handlePopenParent(c, ackID, msg)
	default:
		d.engine.Observe(c.pid, msg.Tag(), msg)
		if ackID != constants.NoAckID {
			_ = c.conn.WriteFrame(ackID, nil)
		}
	}
}

func (d *Dispatcher) handleScprocQuery(c *connection, ackID uint32, msg *fbb.Serialized) {
	q := ProcessQuery{
		Pid:        int(msg.Int("pid")),
		Ppid:       int(msg.Int("ppid")),
		Cwd:        msg.String("cwd"),
		Executable: msg.String("executable"),
	}
	q.Argv = stringArray(msg, "argv")
	q.Env = stringArray(msg, "env")
	q.Libs = stringArray(msg, "libs")

	c.pid = q.Pid
	c.identified = true

	decision := d.engine.Identify(q)

	reader, err := shmq.NewReader(constants.ShmqRegionName(q.Pid))
	if err == nil {
		c.shmqReader = reader
	}

	b := fbb.NewBuilder(fbb.ScprocResp)
	if decision.Shortcut {
		b.SetInt("shortcut", 1)
		b.SetInt("exit_status", int64(decision.ExitStatus))
	} else {
		b.SetInt("shortcut", 0)
	}
	if decision.DebugFlags != 0 {
		b.SetInt("debug_flags", int64(decision.DebugFlags))
	}
	buf := make([]byte, b.Measure())
	b.Serialize(buf)
	_ = c.conn.WriteFrame(ackID, buf)
}

// handlePipeRequest creates the real kernel pipe the interceptor asked
// for and hands both ends back as SCM_RIGHTS ancillary data, then closes
// its own copies of both ends; the supervisor keeps neither end.
func (d *Dispatcher) handlePipeRequest(c *connection, ackID uint32, msg *fbb.Serialized) {
	flags := int(msg.Int("flags"))
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, flags); err != nil {
		b := fbb.NewBuilder(fbb.PipeCreated)
		errno, _ := err.(unix.Errno)
		b.SetInt("error_no", int64(errno))
		buf := make([]byte, b.Measure())
		b.Serialize(buf)
		_ = c.conn.SendFDs(ackID, buf, nil)
		return
	}

	b := fbb.NewBuilder(fbb.PipeCreated)
	buf := make([]byte, b.Measure())
	b.Serialize(buf)
	if err := c.conn.SendFDs(ackID, buf, fds); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return
	}
	unix.Close(fds[0])
	unix.Close(fds[1])
}

// handlePopenParent answers a popen_parent report with a popen_fd reply
// carrying one substitute fd the interceptor dup2s over the real popen()
// pipe fd. The supervisor keeps the other end of a fresh pipe for its own
// observation; what it does with that end is the cache engine's concern
// and is out of scope here.
func (d *Dispatcher) handlePopenParent(c *connection, ackID uint32, msg *fbb.Serialized) {
	d.engine.Observe(c.pid, msg.Tag(), msg)

	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_CLOEXEC); err != nil {
		_ = c.conn.WriteFrame(ackID, nil)
		return
	}

	b := fbb.NewBuilder(fbb.PopenFd)
	buf := make([]byte, b.Measure())
	b.Serialize(buf)
	_ = c.conn.SendFDs(ackID, buf, []int{fds[1]})
	unix.Close(fds[1])
	// fds[0] (the read end) is left open for the cache engine to drain;
	// a real engine would register it with its own event loop here.
}

// drainShmqs empties every identified connection's shmq queue. Messages
// carrying a nonzero ack_id (barriers) get their reply sent over the
// socket only after being observed, which is what gives the barrier its
// "everything previously on shmq is now visible" meaning.
func (d *Dispatcher) drainShmqs() {
	for _, c := range d.conns {
		if c.shmqReader == nil {
			continue
		}
		for {
			payload, ok, err := c.shmqReader.PeekTail()
			if err != nil || !ok {
				break
			}
			ackID := c.shmqReader.PeekTailAckID()
			msg, perr := fbb.ParseAny(payload)
			if perr == nil {
				d.engine.Observe(c.pid, msg.Tag(), msg)
			}
			c.shmqReader.DiscardTail()
			if ackID != 0 {
				_ = c.conn.WriteFrame(uint32(ackID), nil)
			}
		}
	}
}

func stringArray(msg *fbb.Serialized, field string) []string {
	n := msg.ArrayLen(field)
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = msg.StringArrayAt(field, i)
	}
	return out
}
