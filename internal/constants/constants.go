// Package constants holds the fixed sizes, environment variable names and
// wire-layout numbers shared across the interceptor and the supervisor.
package constants

// Environment variables consumed by the interceptor at init.
const (
	// EnvSocket is the path prefix of the supervisor's AF_UNIX socket pool.
	// The interceptor connects to EnvSocket + "0".
	EnvSocket = "FB_SOCKET"

	// EnvSemaphore names a POSIX shared resource the interceptor only keeps
	// track of so it can be restored if the application modifies it.
	EnvSemaphore = "FB_SEMAPHORE"

	// EnvSystemLocations is a colon-separated list of path prefixes; an
	// open() under any of these skips waiting for a supervisor ack.
	EnvSystemLocations = "FB_SYSTEM_LOCATIONS"

	// EnvInsertTraceMarkers, when "1", makes the interceptor wrap every
	// intercepted call with a best-effort open() of a recognizable path so
	// strace/ltrace traces stay readable.
	EnvInsertTraceMarkers = "FB_INSERT_TRACE_MARKERS"

	// EnvLDPreload and EnvLDLibraryPath are re-injected into the environment
	// of execed children if the application altered them.
	EnvLDPreload     = "LD_PRELOAD"
	EnvLDLibraryPath = "LD_LIBRARY_PATH"
)

// TraceMarkerPrefix is the path prefix used by the FB_INSERT_TRACE_MARKERS
// open() calls.
const TraceMarkerPrefix = "/FIREBUILD   ###   "

// Shmq sizing.
const (
	// ShmqInitialSize is the size, in bytes, of a freshly shm_open'd queue
	// region before any growth.
	ShmqInitialSize = 4096

	// ShmqGrowthFactor is the multiplier applied on each mremap growth step.
	ShmqGrowthFactor = 2

	// ShmqAlignment is the byte alignment every offset and payload length in
	// the region is rounded up to.
	ShmqAlignment = 8

	// ShmqEndOfQueue marks a next-message-pointer that has no successor yet.
	ShmqEndOfQueue int32 = -1
)

// Frame layout: u32 payload_length || u32 ack_id || payload.
const (
	FrameLengthFieldSize = 4
	FrameAckIDFieldSize  = 4
	FrameHeaderSize      = FrameLengthFieldSize + FrameAckIDFieldSize
)

// Ack ids. Zero is reserved to mean "no ack requested" so a zeroed frame
// header never looks like a pending ack.
const NoAckID uint32 = 0

// Per-process limits.
const (
	// MaxTrackedFD bounds the dense per-fd notify-state table; fd numbers at
	// or above this fall back to default (unreported) flags.
	MaxTrackedFD = 4096

	// MaxDelayedSignal bounds the delayed-signal bitmap to the POSIX real-time
	// signal range used by the danger zone.
	MaxDelayedSignal = 64

	// MaxTrackedThreads bounds the dense table mapping OS thread ids to their
	// own DangerZone, the same fixed-size-table-over-map tradeoff MaxTrackedFD
	// makes: a process intercepting calls from more concurrently-active
	// threads than this falls back to sharing the slot its probe started at.
	MaxTrackedThreads = 256
)

// FBB tag numbering. Tag 0 is reserved so a zeroed, never-initialized builder
// fails assertions instead of silently describing a real message.
const (
	TagUnused int32 = 0
)
