package constants

import "fmt"

// ShmqRegionName returns the shared-memory object name one process's shmq
// hot-path queue is created under. The interceptor creates it (as writer)
// under its own pid before it dials the control socket; the supervisor
// attaches to the same name (as
// reader) once it has parsed that process's scproc_query.
func ShmqRegionName(pid int) string {
	return fmt.Sprintf("/fb-shmq-%d", pid)
}
