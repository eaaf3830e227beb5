package sidechannel

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"github.com/firebuild-go/fbcore"
	"github.com/firebuild-go/fbcore/internal/constants"
)

// AckTable hands out monotonically increasing ack ids for one Conn and
// lets callers spin-wait for the matching reply to land. It is safe for
// concurrent use by multiple goroutines issuing requests on the same
// connection, as long as a single reader goroutine feeds replies in via
// Complete. The pending map itself is guarded by mu; the spin-wait on
// p.done happens outside the lock so waiters don't serialize on each
// other.
type AckTable struct {
	next    atomix.Uint32
	mu      sync.Mutex
	pending map[uint32]*pendingAck
}

type pendingAck struct {
	done    atomix.Bool
	ackID   int32
	payload []byte
	fds     []int
	err     error
}

// NewAckTable creates an empty table. Ack id 0 is reserved (constants.NoAckID)
// and never handed out.
func NewAckTable() *AckTable {
	t := &AckTable{pending: make(map[uint32]*pendingAck)}
	t.next.StoreRelaxed(constants.NoAckID)
	return t
}

// Begin allocates a fresh ack id and registers it as outstanding. The
// caller must eventually call Wait with the returned id, even if the send
// that uses it fails, to avoid leaking the pending slot; Cancel does that
// without blocking.
func (t *AckTable) Begin() uint32 {
	id := t.next.AddAcqRel(1)
	if id == constants.NoAckID {
		id = t.next.AddAcqRel(1)
	}
	t.mu.Lock()
	t.pending[id] = &pendingAck{}
	t.mu.Unlock()
	return id
}

// Cancel discards a pending ack slot without waiting on it, for use when
// the request that would have carried this ack id was never sent.
func (t *AckTable) Cancel(id uint32) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}

// Complete delivers a reply's payload to whichever goroutine is waiting on
// its ack id. Called from the connection's single reader goroutine.
func (t *AckTable) Complete(id uint32, payload []byte, err error) {
	t.CompleteFDs(id, payload, nil, err)
}

// CompleteFDs is Complete's counterpart for replies that arrived with
// SCM_RIGHTS ancillary data (popen_fd, pipe_created).
func (t *AckTable) CompleteFDs(id uint32, payload []byte, fds []int, err error) {
	t.mu.Lock()
	p, ok := t.pending[id]
	t.mu.Unlock()
	if !ok {
		return
	}
	p.payload = payload
	p.fds = fds
	p.err = err
	p.done.StoreRelease(true)
}

// Wait spin-waits for id's reply to arrive and returns it, then frees the
// slot. Spinning (rather than a channel) matches the hot-path cost model
// of the rest of the control-plane round trip: replies are expected within
// microseconds, not milliseconds.
func (t *AckTable) Wait(id uint32) ([]byte, error) {
	t.mu.Lock()
	p, ok := t.pending[id]
	t.mu.Unlock()
	if !ok {
		return nil, fbcore.NewError("sidechannel.AckTable.Wait", fbcore.ErrCodeAckMismatch, "no pending ack registered for this id")
	}

	sw := spin.Wait{}
	for !p.done.LoadAcquire() {
		sw.Once()
	}

	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
	return p.payload, p.err
}

// WaitFDs is Wait's counterpart for replies expected to carry ancillary
// fds alongside (or instead of) a byte payload.
func (t *AckTable) WaitFDs(id uint32) (payload []byte, fds []int, err error) {
	t.mu.Lock()
	p, ok := t.pending[id]
	t.mu.Unlock()
	if !ok {
		return nil, nil, fbcore.NewError("sidechannel.AckTable.WaitFDs", fbcore.ErrCodeAckMismatch, "no pending ack registered for this id")
	}

	sw := spin.Wait{}
	for !p.done.LoadAcquire() {
		sw.Once()
	}

	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
	return p.payload, p.fds, p.err
}
