package procstate

import "sync"

// PopenSet is the set of FILE* values a successful popen() returned, so
// pclose() can tell a popened stream apart from an ordinary fclose'd one
// and report it correctly (including the pre-pclose synthetic close
// to avoid a pclose/wait deadlock on the wrong fd).
type PopenSet struct {
	mu      sync.Mutex
	streams map[uintptr]int // FILE* -> underlying fd, for the synthetic close
}

// NewPopenSet returns an empty set.
func NewPopenSet() *PopenSet {
	return &PopenSet{streams: make(map[uintptr]int)}
}

// Add records a FILE* returned by a successful popen(), along with the fd
// libc attached to it (fileno(stream)).
func (s *PopenSet) Add(stream uintptr, fd int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[stream] = fd
}

// Remove drops stream from the set, called once pclose has finished with
// it (successfully or not).
func (s *PopenSet) Remove(stream uintptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams, stream)
}

// Lookup reports whether stream was returned by our popen wrapper, and if
// so the fd pclose must synthetically close before calling the real
// pclose.
func (s *PopenSet) Lookup(stream uintptr) (fd int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fd, ok = s.streams[stream]
	return fd, ok
}
