package interceptor

import (
	"github.com/firebuild-go/fbcore/internal/fbb"
)

// send serializes b and enqueues it on the shmq hot path with no ack id:
// no kernel crossing, no wait, the supervisor drains it whenever it next
// services this process's queue. b is serialized directly into the
// region NewMessage already reserved, never into a separate heap buffer
// first, since this path must stay allocation-free to be safe to call
// from inside a signal handler.
func (h *Hooks) send(b *fbb.Builder) error {
	body, err := h.Shmq.NewMessage(int32(b.Measure()))
	if err != nil {
		return err
	}
	b.Serialize(body)
	h.Shmq.AddMessage(0)
	return nil
}

// sendAcked serializes b, writes it on the socket (the only channel the
// supervisor can reply on) with a fresh ack id, and blocks until the
// matching reply arrives, returning its payload (nil for a bare ack).
func (h *Hooks) sendAcked(b *fbb.Builder) ([]byte, error) {
	buf := make([]byte, b.Measure())
	b.Serialize(buf)

	id := h.Acks.Begin()
	if err := h.Conn.WriteFrame(id, buf); err != nil {
		h.Acks.Cancel(id)
		return nil, err
	}
	return h.Acks.Wait(id)
}

// sendBarrier flushes prior shmq traffic before a dependent socket send.
// The barrier itself is enqueued on shmq, behind everything already
// written there, carrying a fresh ack id; the reply (always delivered over
// the socket, shmq having no return path) only arrives once the
// supervisor's dispatch loop has drained the shmq up to and including
// this message, which is what gives the caller "everything previously on
// shmq is now observed" before it proceeds to its own socket send.
func (h *Hooks) sendBarrier() error {
	b := fbb.NewBuilder(fbb.Barrier)

	id := h.Acks.Begin()
	body, err := h.Shmq.NewMessage(int32(b.Measure()))
	if err != nil {
		h.Acks.Cancel(id)
		return err
	}
	b.Serialize(body)
	h.Shmq.AddMessage(int32(id))

	_, err = h.Acks.Wait(id)
	return err
}
