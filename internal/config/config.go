// Package config loads the interceptor's environment-variable surface and
// exposes it read-only afterward.
package config

import (
	"os"
	"strings"

	"github.com/firebuild-go/fbcore/internal/constants"
)

// Config is the fixed view of the environment the interceptor was started
// with. Each Load call reads the process environment afresh; a Config
// already built is not updated when the environment changes later.
type Config struct {
	// Socket is the path prefix of the supervisor's AF_UNIX socket pool.
	// The interceptor connects to Socket + "0".
	Socket string

	// Semaphore is the POSIX shared resource name the application had set,
	// kept only so it can be restored if the application alters or removes
	// it.
	Semaphore string

	// SystemLocations lists path prefixes under which an open() does not
	// wait for a supervisor ack.
	SystemLocations []string

	// InsertTraceMarkers enables the FB_INSERT_TRACE_MARKERS open() wrapper.
	InsertTraceMarkers bool

	// LDPreload and LDLibraryPath are the values to re-inject into an execed
	// child's environment if the application altered them after our init.
	LDPreload     string
	LDLibraryPath string
}

// Load builds a Config from the process environment. cmd/fbpreload calls
// it at interceptor startup and again in each fork child.
func Load() *Config {
	return &Config{
		Socket:             os.Getenv(constants.EnvSocket),
		Semaphore:          os.Getenv(constants.EnvSemaphore),
		SystemLocations:    splitNonEmpty(os.Getenv(constants.EnvSystemLocations), ":"),
		InsertTraceMarkers: os.Getenv(constants.EnvInsertTraceMarkers) == "1",
		LDPreload:          os.Getenv(constants.EnvLDPreload),
		LDLibraryPath:      os.Getenv(constants.EnvLDLibraryPath),
	}
}

// SocketPath returns the path of the primary supervisor socket, Socket+"0".
func (c *Config) SocketPath() string {
	return c.Socket + "0"
}

// UnderSystemLocation reports whether path falls under one of the
// configured system/ignore location prefixes.
func (c *Config) UnderSystemLocation(path string) bool {
	for _, prefix := range c.SystemLocations {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
