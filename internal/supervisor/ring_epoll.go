//go:build !giouring
// +build !giouring

package supervisor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// epollRing is the always-available Ring backend: one epoll instance, one
// epoll_wait per Wait call.
type epollRing struct {
	epfd int
}

// NewRing creates the default Ring implementation for this build.
func NewRing() (Ring, error) {
	return newEpollRing()
}

func newEpollRing() (Ring, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("supervisor: epoll_create1: %w", err)
	}
	return &epollRing{epfd: epfd}, nil
}

func (r *epollRing) Close() error {
	return unix.Close(r.epfd)
}

func (r *epollRing) Add(fd int, userData uint64) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP,
	}
	// EpollEvent.Fd is the conventional place to stash user data; only
	// the low 32 bits of userData are kept, and Pad is left zero.
	ev.Fd = int32(userData)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("supervisor: epoll_ctl add fd %d: %w", fd, err)
	}
	return nil
}

func (r *epollRing) Remove(fd int) error {
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		if err == unix.ENOENT || err == unix.EBADF {
			return nil
		}
		return fmt.Errorf("supervisor: epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

func (r *epollRing) Wait(timeoutMs int) ([]Event, error) {
	raw := make([]unix.EpollEvent, 64)
	for {
		n, err := unix.EpollWait(r.epfd, raw, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("supervisor: epoll_wait: %w", err)
		}
		events := make([]Event, 0, n)
		for i := 0; i < n; i++ {
			e := raw[i]
			events = append(events, Event{
				UserData: uint64(uint32(e.Fd)),
				Readable: e.Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0,
				HangUp:   e.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
				Err:      e.Events&unix.EPOLLERR != 0,
			})
		}
		return events, nil
	}
}
