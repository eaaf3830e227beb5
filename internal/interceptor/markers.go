package interceptor

import (
	"golang.org/x/sys/unix"

	"github.com/firebuild-go/fbcore/internal/constants"
)

// EmitTraceMarker issues the best-effort open() call strace/ltrace can
// observe around an intercepted call, when FB_INSERT_TRACE_MARKERS is
// set. The open always fails (no such file), which is the
// point: the path itself, prefixed with constants.TraceMarkerPrefix, is
// the marker.
func (h *Hooks) EmitTraceMarker(label string) {
	if !h.Config.InsertTraceMarkers {
		return
	}
	path := constants.TraceMarkerPrefix + label
	fd, err := unix.Open(path, 0, 0)
	if err == nil {
		unix.Close(fd)
	}
}
