package shmq

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/firebuild-go/fbcore/internal/constants"
)

// Reader is the single consumer of one shmq region. It attaches to a
// region created by a Writer, unlinks the name immediately (the region
// stays alive as long as either side holds its mapping), and then walks
// the region's linked list of messages from its own tail pointer forward.
type Reader struct {
	buf []byte
	fd  int

	readLocation int32

	peeked     bool
	pendingLoc int32
	pendingLen int32
}

// NewReader shm_open's name with O_RDWR (no O_CREAT: the writer must exist
// first), maps the region at its current size, and unlinks the name so no
// third party can attach to it.
func NewReader(name string) (*Reader, error) {
	fd, err := openRegion(name, unix.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shmq: fstat: %w", err)
	}

	buf, err := mmapRegion(fd, int(st.Size))
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	if err := unlinkRegion(name); err != nil {
		unix.Munmap(buf)
		unix.Close(fd)
		return nil, err
	}

	return &Reader{
		buf:          buf,
		fd:           fd,
		readLocation: globalHeaderSize,
	}, nil
}

// Close unmaps the region and closes the reader's fd.
func (r *Reader) Close() error {
	if err := unix.Munmap(r.buf); err != nil {
		return err
	}
	r.buf = nil
	return unix.Close(r.fd)
}

// ensureMapped grows the reader's own mapping to at least need bytes,
// following the writer's backing file size (the writer ftruncates before
// it ever points a next-pointer past the reader's current mapping).
func (r *Reader) ensureMapped(need int) error {
	if len(r.buf) >= need {
		return nil
	}

	var st unix.Stat_t
	if err := unix.Fstat(r.fd, &st); err != nil {
		return fmt.Errorf("shmq: fstat: %w", err)
	}

	size := len(r.buf)
	for size < need {
		size *= 2
	}
	if int64(size) > st.Size {
		size = int(st.Size)
	}

	newBuf, err := unix.Mremap(r.buf, size, unix.MREMAP_MAYMOVE)
	if err != nil {
		return fmt.Errorf("shmq: mremap: %w", err)
	}
	r.buf = newBuf
	return nil
}

// PeekTail returns the payload of the oldest undiscarded message without
// removing it from the queue, so repeated calls with no intervening
// DiscardTail return the same message. ok is false when the queue is
// currently empty.
func (r *Reader) PeekTail() (payload []byte, ok bool, err error) {
	if r.peeked {
		bodyOff := r.pendingLoc + messageHeaderSize
		return r.buf[bodyOff : bodyOff+r.pendingLen], true, nil
	}

	next := loadInt32Acquire(r.buf, r.readLocation)
	if next == constants.ShmqEndOfQueue {
		return nil, false, nil
	}

	if err := r.ensureMapped(int(next) + messageHeaderSize); err != nil {
		return nil, false, err
	}
	msgLen := loadInt32(r.buf, next)

	if err := r.ensureMapped(int(next) + int(messageOverallSize(msgLen))); err != nil {
		return nil, false, err
	}

	r.pendingLoc = next
	r.pendingLen = msgLen
	r.peeked = true

	bodyOff := next + messageHeaderSize
	return r.buf[bodyOff : bodyOff+msgLen], true, nil
}

// PeekTailAckID returns the ack_id stored alongside the message currently
// held by PeekTail. Only valid while peeked is true.
func (r *Reader) PeekTailAckID() int32 {
	if !r.peeked {
		panic("shmq: PeekTailAckID called without a pending PeekTail")
	}
	return loadInt32(r.buf, r.pendingLoc+4)
}

// DiscardTail removes the peeked message from the queue by publishing its
// own next-pointer location as the new tail_location, which is what lets
// the writer reclaim the space on its next advanceTail.
func (r *Reader) DiscardTail() {
	if !r.peeked {
		panic("shmq: DiscardTail called without a pending PeekTail")
	}

	newLocation := r.pendingLoc + messageHeaderSize + align8(r.pendingLen)
	r.readLocation = newLocation
	storeInt32Release(r.buf, 0, newLocation)

	r.peeked = false
}
