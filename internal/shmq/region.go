// Package shmq is the single-producer/single-consumer shared-memory
// message queue used on the hot path between an intercepted process and
// the supervisor. The writer side is async-signal-safe: no allocation, no
// locks, only mmap/mremap/ftruncate and plain memory writes.
package shmq

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/firebuild-go/fbcore/internal/constants"
)

// Sizes of the fixed records shmq.h lays out. Each is already 8-byte
// aligned on its own, matching roundup8(sizeof(...)) in the C layout.
const (
	globalHeaderSize  = 8 // tail_location int32 + padding int32
	messageHeaderSize = 8 // len int32 + ack_id int32
	nextPointerSize   = 8 // next_message_location int32, padded to 8
)

func align8(n int32) int32 {
	return (n + 7) &^ 7
}

// messageOverallSize is the contiguous span a message of the given payload
// length occupies: header, padded payload, and the trailing next-pointer.
func messageOverallSize(payloadLen int32) int32 {
	return messageHeaderSize + align8(payloadLen) + nextPointerSize
}

// shmPath maps a POSIX shared-memory name (which must start with '/') to
// the path the Linux implementation of shm_open ultimately uses.
func shmPath(name string) (string, error) {
	if len(name) == 0 || name[0] != '/' {
		return "", fmt.Errorf("shmq: shared memory name %q must start with '/'", name)
	}
	return "/dev/shm" + name, nil
}

// openRegion shm_open's name with the given flags and mode, mirroring
// glibc's own shm_open, which is implemented as open() under /dev/shm.
func openRegion(name string, flags int, mode uint32) (int, error) {
	path, err := shmPath(name)
	if err != nil {
		return -1, err
	}
	fd, err := unix.Open(path, flags|unix.O_CLOEXEC, mode)
	if err != nil {
		return -1, fmt.Errorf("shmq: open %s: %w", path, err)
	}
	return fd, nil
}

func unlinkRegion(name string) error {
	path, err := shmPath(name)
	if err != nil {
		return err
	}
	if err := unix.Unlink(path); err != nil {
		return fmt.Errorf("shmq: unlink %s: %w", path, err)
	}
	return nil
}

// mmapRegion maps size bytes of fd, read-write, shared.
func mmapRegion(fd int, size int) ([]byte, error) {
	buf, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shmq: mmap: %w", err)
	}
	return buf, nil
}

// growRegion doubles size until it covers need, ftruncate'ing the backing
// fd (when fd >= 0, i.e. we're the writer) and mremap'ing the mapping.
// mremap(MREMAP_MAYMOVE) is relied upon to be async-signal-safe, same as
// upstream; this is what lets the writer grow the queue from inside a
// signal handler.
func growRegion(buf []byte, fd int, need int) ([]byte, error) {
	size := len(buf)
	for size < need {
		size *= 2
	}
	if fd >= 0 {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			return nil, fmt.Errorf("shmq: ftruncate: %w", err)
		}
	}
	newBuf, err := unix.Mremap(buf, size, unix.MREMAP_MAYMOVE)
	if err != nil {
		return nil, fmt.Errorf("shmq: mremap: %w", err)
	}
	return newBuf, nil
}

// initialSize is the region's size before any growth.
const initialSize = constants.ShmqInitialSize

// RegionName derives the shm_open name for pid's shmq, deterministically
// so the supervisor can attach to it as soon as it learns the pid from
// scproc_query, without the interceptor having to announce a name.
func RegionName(pid int) string {
	return fmt.Sprintf("/fb-shmq-%d", pid)
}
