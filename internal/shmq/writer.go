package shmq

import (
	"golang.org/x/sys/unix"

	"github.com/firebuild-go/fbcore/internal/constants"
)

type chunkExtent struct {
	tail, head int32
}

// writerStateToChunks maps the writer's current layout state (1..4) to how
// many of chunk[0..2] are in use, per the upstream state machine.
var writerStateToChunks = [5]int{0, 1, 2, 3, 2}

// oldToNewStateOnDrop maps a state to what it becomes once chunk[0] is
// entirely consumed and dropped.
var oldToNewStateOnDrop = [5]int{0, 0, 1, 4, 1}

// Writer is the single producer of one shmq region. Not safe for concurrent
// use by more than one writer goroutine/thread; it is safe to call from a
// signal handler on the same thread that normally owns it, as long as
// new_message/add_message pairs are never interrupted by a nested call.
type Writer struct {
	size int
	buf  []byte
	fd   int

	state, nextState int
	chunk            [3]chunkExtent

	nextMessageLocation int32
	nextMessageLen      int32
}

// NewWriter shm_open's name with O_CREAT|O_EXCL, sizes it to the initial
// region size, and sets up the empty-queue layout (state 1, one empty
// chunk, tail_location pointing at the lone next-pointer).
func NewWriter(name string) (*Writer, error) {
	fd, err := openRegion(name, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL, 0666)
	if err != nil {
		return nil, err
	}

	if err := unix.Ftruncate(fd, int64(initialSize)); err != nil {
		unix.Close(fd)
		return nil, err
	}
	buf, err := mmapRegion(fd, initialSize)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	w := &Writer{
		size: initialSize,
		buf:  buf,
		fd:   fd,
	}

	storeInt32Release(w.buf, globalHeaderSize, constants.ShmqEndOfQueue)
	storeInt32Release(w.buf, 0 /* tail_location */, globalHeaderSize)

	w.state = 1
	w.chunk[0] = chunkExtent{tail: globalHeaderSize, head: globalHeaderSize + nextPointerSize}
	w.nextState = -1
	w.nextMessageLocation = -1
	w.nextMessageLen = -1

	return w, nil
}

// Close unmaps the region and closes the writer's fd. It deliberately does
// not shm_unlink: the reader unlinks after attaching, same as upstream.
func (w *Writer) Close() error {
	if err := unix.Munmap(w.buf); err != nil {
		return err
	}
	w.buf = nil
	return unix.Close(w.fd)
}

func (w *Writer) nrChunks() int {
	return writerStateToChunks[w.state]
}

// advanceTail drops fully-consumed chunks based on the reader-published
// tail_location, shifting the remaining chunks down.
func (w *Writer) advanceTail() {
	tail := loadInt32Acquire(w.buf, 0)

	for tail < w.chunk[0].tail || tail >= w.chunk[0].head {
		w.chunk[0] = w.chunk[1]
		w.chunk[1] = w.chunk[2]
		w.state = oldToNewStateOnDrop[w.state]
	}
	w.chunk[0].tail = tail
}

// findPlaceForMessage decides where a message of the given payload length
// will land, growing the mapping first if necessary, and records the
// decision in nextMessageLocation/nextState.
func (w *Writer) findPlaceForMessage(payloadLen int32) error {
	overall := messageOverallSize(payloadLen)

	switch {
	case w.state == 1 && overall <= w.chunk[0].tail-globalHeaderSize:
		w.nextMessageLocation = globalHeaderSize
		w.nextState = 2
	case w.state == 2 && overall > w.chunk[0].tail-w.chunk[1].head:
		w.nextMessageLocation = w.chunk[0].head
		w.nextState = 3
	default:
		w.nextMessageLocation = w.chunk[w.nrChunks()-1].head
		w.nextState = w.state
	}
	w.nextMessageLen = payloadLen

	need := int(w.nextMessageLocation) + int(overall)
	if w.size < need {
		newBuf, err := growRegion(w.buf, w.fd, need)
		if err != nil {
			return err
		}
		w.buf = newBuf
		w.size = len(newBuf)
	}
	return nil
}

// NewMessage reserves room for a message of payloadLen bytes and returns a
// slice the caller fills in with the message body. new_message and
// add_message calls must alternate.
func (w *Writer) NewMessage(payloadLen int32) ([]byte, error) {
	if w.nextState != -1 {
		panic("shmq: NewMessage called before a prior message was added")
	}

	w.advanceTail()
	if err := w.findPlaceForMessage(payloadLen); err != nil {
		return nil, err
	}

	bodyOff := w.nextMessageLocation + messageHeaderSize
	return w.buf[bodyOff : bodyOff+payloadLen : bodyOff+payloadLen], nil
}

// ResizeMessage grows or shrinks the message currently under construction,
// relocating it via copy if it no longer fits where it was placed.
func (w *Writer) ResizeMessage(payloadLen int32) ([]byte, error) {
	if w.nextState == -1 {
		panic("shmq: ResizeMessage called without a pending NewMessage")
	}

	if payloadLen <= w.nextMessageLen {
		w.nextMessageLen = payloadLen
	} else {
		oldLoc := w.nextMessageLocation
		oldLen := w.nextMessageLen

		w.advanceTail()
		if err := w.findPlaceForMessage(payloadLen); err != nil {
			return nil, err
		}

		n := messageHeaderSize + align8(oldLen)
		copy(w.buf[w.nextMessageLocation:w.nextMessageLocation+n], w.buf[oldLoc:oldLoc+n])
	}

	bodyOff := w.nextMessageLocation + messageHeaderSize
	return w.buf[bodyOff : bodyOff+w.nextMessageLen : bodyOff+w.nextMessageLen], nil
}

// AddMessage writes the header's len and ack_id, terminates the queue with
// a fresh next-pointer, and atomically publishes the message by updating
// the previous next-pointer to point at it.
func (w *Writer) AddMessage(ackID int32) {
	if w.nextState == -1 {
		panic("shmq: AddMessage called without a pending NewMessage")
	}

	loc := w.nextMessageLocation
	storeInt32(w.buf, loc, w.nextMessageLen)         // message_header.len
	storeInt32(w.buf, loc+4, ackID)                  // message_header.ack_id
	newNextPtrOff := loc + messageHeaderSize + align8(w.nextMessageLen)
	storeInt32(w.buf, newNextPtrOff, constants.ShmqEndOfQueue)

	prevPtrOff := w.chunk[w.nrChunks()-1].head - nextPointerSize
	storeInt32Release(w.buf, prevPtrOff, loc)

	if w.nextState != w.state {
		w.chunk[w.state] = chunkExtent{tail: loc, head: loc + messageOverallSize(w.nextMessageLen)}
	} else {
		idx := w.nrChunks() - 1
		w.chunk[idx].head += messageOverallSize(w.nextMessageLen)
	}
	w.state = w.nextState

	w.nextState = -1
	w.nextMessageLocation, w.nextMessageLen = -1, -1
}

// storeInt32 is a plain (non-atomic) store for fields only the writer
// itself ever reads back, such as the message length and ack id before
// the message is published.
func storeInt32(buf []byte, offset, v int32) {
	buf[offset] = byte(v)
	buf[offset+1] = byte(v >> 8)
	buf[offset+2] = byte(v >> 16)
	buf[offset+3] = byte(v >> 24)
}
