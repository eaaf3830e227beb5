package fbb

// Message tags. Tag 0 is TagUnused; tags are assigned in schema declaration
// order and are never persisted across a build (in-memory only).
const (
	TagScprocQuery int32 = iota + 1
	TagScprocResp
	TagExec
	TagExecFailed
	TagOpen
	TagClose
	TagReadFromInherited
	TagWriteToInherited
	TagSeekInInherited
	TagPipeRequest
	TagPipeFds
	TagPipeCreated
	TagPopen
	TagPopenParent
	TagPopenFd
	TagPopenFailed
	TagSystem
	TagSystemRet
	TagPosixSpawn
	TagPosixSpawnParent
	TagPosixSpawnFailed
	TagForkParent
	TagForkChild
	TagExit
	TagGenCall
	TagFbError
	TagFbDebug
	TagLaObjsearch
	TagLaObjopen
	TagFcntl
	TagRecvmsgScmRights
	TagBarrier
	TagTesting // not part of the production protocol; round-trip test fixture only
	TagNext
)

// ScprocQuery is the interceptor's self-identification, the first message
// sent on every freshly connected sidechannel.
var ScprocQuery = &Schema{
	Tag:  TagScprocQuery,
	Name: "scproc_query",
	Fields: []Field{
		{Name: "pid", Quant: Required, Type: TypeInt},
		{Name: "ppid", Quant: Required, Type: TypeInt},
		{Name: "cwd", Quant: Required, Type: TypeString},
		{Name: "executable", Quant: Required, Type: TypeString},
		{Name: "argv", Quant: Array, Type: TypeString},
		{Name: "env", Quant: Array, Type: TypeString},
		{Name: "libs", Quant: Array, Type: TypeString},
	},
}

// ScprocResp answers ScprocQuery: either a shortcut decision plus the exit
// status to replay, or permission to continue plus debug flags.
var ScprocResp = &Schema{
	Tag:  TagScprocResp,
	Name: "scproc_resp",
	Fields: []Field{
		{Name: "shortcut", Quant: Required, Type: TypeInt},
		{Name: "exit_status", Quant: Optional, Type: TypeInt},
		{Name: "debug_flags", Quant: Optional, Type: TypeInt},
	},
}

// Exec carries every exec-family call (execve, execvp, execvpe, execl*,
// fexecve), converged to one message shape regardless of which libc entry
// point the application called.
var Exec = &Schema{
	Tag:  TagExec,
	Name: "exec",
	Fields: []Field{
		{Name: "file", Quant: Required, Type: TypeString},
		{Name: "fd", Quant: Optional, Type: TypeInt}, // set for fexecve
		{Name: "argv", Quant: Array, Type: TypeString},
		{Name: "env", Quant: Array, Type: TypeString},
		{Name: "path", Quant: Optional, Type: TypeString}, // $PATH / _CS_PATH fallback, execvp family
		{Name: "rusage_utime_us", Quant: Required, Type: TypeInt},
		{Name: "rusage_stime_us", Quant: Required, Type: TypeInt},
	},
}

// ExecFailed is sent, acked, whenever the libc exec call returns instead of
// replacing the process image.
var ExecFailed = &Schema{
	Tag:  TagExecFailed,
	Name: "exec_failed",
	Fields: []Field{
		{Name: "error_no", Quant: Required, Type: TypeInt},
	},
}

// Open reports an open()/openat()/creat() call. FBSystemLocations-prefixed
// paths still send this message but the caller does not await its ack.
var Open = &Schema{
	Tag:  TagOpen,
	Name: "open",
	Fields: []Field{
		{Name: "dirfd", Quant: Required, Type: TypeInt},
		{Name: "pathname", Quant: Required, Type: TypeString},
		{Name: "flags", Quant: Required, Type: TypeInt},
		{Name: "mode", Quant: Required, Type: TypeInt},
		{Name: "ret", Quant: Required, Type: TypeInt},
		{Name: "pre_open_sent", Quant: Required, Type: TypeInt},
	},
}

// Close reports a close() of a pipe endpoint; travels on the socket,
// preceded by a barrier flush of the shmq.
var Close = &Schema{
	Tag:  TagClose,
	Name: "close",
	Fields: []Field{
		{Name: "fd", Quant: Required, Type: TypeInt},
	},
}

// ReadFromInherited, WriteToInherited and SeekInInherited each fire once
// per fd per kind, on the first occurrence of that operation.
var ReadFromInherited = &Schema{
	Tag:  TagReadFromInherited,
	Name: "read_from_inherited",
	Fields: []Field{
		{Name: "fd", Quant: Required, Type: TypeInt},
	},
}

var WriteToInherited = &Schema{
	Tag:  TagWriteToInherited,
	Name: "write_to_inherited",
	Fields: []Field{
		{Name: "fd", Quant: Required, Type: TypeInt},
	},
}

var SeekInInherited = &Schema{
	Tag:  TagSeekInInherited,
	Name: "seek_in_inherited",
	Fields: []Field{
		{Name: "fd", Quant: Required, Type: TypeInt},
	},
}

// PipeRequest asks the supervisor to create an intercepted pipe; answered
// by PipeCreated with two ancillary fds.
var PipeRequest = &Schema{
	Tag:  TagPipeRequest,
	Name: "pipe_request",
	Fields: []Field{
		{Name: "flags", Quant: Required, Type: TypeInt},
	},
}

// PipeFds announces the fd pair the interceptor installed from a
// PipeCreated response, for the supervisor's own fd bookkeeping.
var PipeFds = &Schema{
	Tag:  TagPipeFds,
	Name: "pipe_fds",
	Fields: []Field{
		{Name: "fd0", Quant: Required, Type: TypeInt},
		{Name: "fd1", Quant: Required, Type: TypeInt},
	},
}

// PipeCreated answers PipeRequest; carries error_no on failure, otherwise
// the two new fds arrive only as SCM_RIGHTS ancillary data.
var PipeCreated = &Schema{
	Tag:  TagPipeCreated,
	Name: "pipe_created",
	Fields: []Field{
		{Name: "error_no", Quant: Optional, Type: TypeInt},
	},
}

// Popen, PopenParent, PopenFd and PopenFailed implement the popen/pclose
// family.
var Popen = &Schema{
	Tag:  TagPopen,
	Name: "popen",
	Fields: []Field{
		{Name: "command", Quant: Required, Type: TypeString},
		{Name: "type", Quant: Required, Type: TypeString},
	},
}

var PopenParent = &Schema{
	Tag:  TagPopenParent,
	Name: "popen_parent",
	Fields: []Field{
		{Name: "fd", Quant: Required, Type: TypeInt},
	},
}

// PopenFd carries no scalar payload; the ancillary substitute fd is the
// entire point of the reply.
var PopenFd = &Schema{
	Tag:    TagPopenFd,
	Name:   "popen_fd",
	Fields: []Field{},
}

var PopenFailed = &Schema{
	Tag:  TagPopenFailed,
	Name: "popen_failed",
	Fields: []Field{
		{Name: "error_no", Quant: Required, Type: TypeInt},
	},
}

// System and SystemRet implement system(3) interception.
var System = &Schema{
	Tag:  TagSystem,
	Name: "system",
	Fields: []Field{
		{Name: "command", Quant: Required, Type: TypeString},
	},
}

var SystemRet = &Schema{
	Tag:  TagSystemRet,
	Name: "system_ret",
	Fields: []Field{
		{Name: "ret", Quant: Required, Type: TypeInt},
		{Name: "error_no", Quant: Required, Type: TypeInt},
	},
}

// PosixSpawn carries the file-or-fd, fixed-up argv/env and the replayed
// file-actions list accumulated in the actions pool.
var PosixSpawn = &Schema{
	Tag:  TagPosixSpawn,
	Name: "posix_spawn",
	Fields: []Field{
		{Name: "file", Quant: Required, Type: TypeString},
		{Name: "argv", Quant: Array, Type: TypeString},
		{Name: "env", Quant: Array, Type: TypeString},
		{Name: "file_actions", Quant: Array, Type: TypeString},
	},
}

var PosixSpawnParent = &Schema{
	Tag:  TagPosixSpawnParent,
	Name: "posix_spawn_parent",
	Fields: []Field{
		{Name: "pid", Quant: Required, Type: TypeInt},
	},
}

var PosixSpawnFailed = &Schema{
	Tag:  TagPosixSpawnFailed,
	Name: "posix_spawn_failed",
	Fields: []Field{
		{Name: "argv", Quant: Array, Type: TypeString},
		{Name: "error_no", Quant: Required, Type: TypeInt},
	},
}

// ForkParent and ForkChild implement the fork/clone/vfork handshake.
var ForkParent = &Schema{
	Tag:  TagForkParent,
	Name: "fork_parent",
	Fields: []Field{
		{Name: "child_pid", Quant: Required, Type: TypeInt},
	},
}

var ForkChild = &Schema{
	Tag:  TagForkChild,
	Name: "fork_child",
	Fields: []Field{
		{Name: "pid", Quant: Required, Type: TypeInt},
		{Name: "ppid", Quant: Required, Type: TypeInt},
	},
}

// Exit covers the single handle_exit() choke point for every exit-family
// libc entry point.
var Exit = &Schema{
	Tag:  TagExit,
	Name: "exit",
	Fields: []Field{
		{Name: "status", Quant: Required, Type: TypeInt},
		{Name: "utime_us", Quant: Required, Type: TypeInt},
		{Name: "stime_us", Quant: Required, Type: TypeInt},
	},
}

// GenCall is a catch-all marker for libc entry points that are worth
// reporting by name only, with no call-specific payload.
var GenCall = &Schema{
	Tag:  TagGenCall,
	Name: "gen_call",
	Fields: []Field{
		{Name: "name", Quant: Required, Type: TypeString},
	},
}

var FbError = &Schema{
	Tag:  TagFbError,
	Name: "fb_error",
	Fields: []Field{
		{Name: "message", Quant: Required, Type: TypeString},
	},
}

var FbDebug = &Schema{
	Tag:  TagFbDebug,
	Name: "fb_debug",
	Fields: []Field{
		{Name: "message", Quant: Required, Type: TypeString},
	},
}

// LaObjsearch and LaObjopen report dynamic linker audit events for dlopen
// resolution.
var LaObjsearch = &Schema{
	Tag:  TagLaObjsearch,
	Name: "la_objsearch",
	Fields: []Field{
		{Name: "name", Quant: Required, Type: TypeString},
	},
}

var LaObjopen = &Schema{
	Tag:  TagLaObjopen,
	Name: "la_objopen",
	Fields: []Field{
		{Name: "name", Quant: Required, Type: TypeString},
		{Name: "resolved_path", Quant: Optional, Type: TypeString},
	},
}

// Fcntl reports fcntl/ioctl commands that can affect visible behavior.
var Fcntl = &Schema{
	Tag:  TagFcntl,
	Name: "fcntl",
	Fields: []Field{
		{Name: "fd", Quant: Required, Type: TypeInt},
		{Name: "cmd", Quant: Required, Type: TypeInt},
		{Name: "arg", Quant: Optional, Type: TypeInt},
	},
}

// RecvmsgScmRights lists fds that arrived as ancillary data on a recvmsg
// the interceptor observed.
var RecvmsgScmRights = &Schema{
	Tag:  TagRecvmsgScmRights,
	Name: "recvmsg_scm_rights",
	Fields: []Field{
		{Name: "fds", Quant: Array, Type: TypeInt},
		{Name: "cloexec", Quant: Required, Type: TypeInt},
	},
}

// Barrier is an empty ack'd shmq message that flushes prior shmq traffic
// before a dependent socket send.
var Barrier = &Schema{
	Tag:    TagBarrier,
	Name:   "barrier",
	Fields: []Field{},
}

// Testing is the round-trip test fixture from the upstream test suite: not
// part of the production protocol, used only in tests. It covers required
// and optional ints, required and optional strings, and string arrays; it
// has no int-array or message fields.
var Testing = &Schema{
	Tag:  TagTesting,
	Name: "testing",
	Fields: []Field{
		{Name: "ri1", Quant: Required, Type: TypeInt},
		{Name: "oi2", Quant: Optional, Type: TypeInt},
		{Name: "ri3", Quant: Required, Type: TypeInt},
		{Name: "oi4", Quant: Optional, Type: TypeInt},
		{Name: "rs5", Quant: Required, Type: TypeString},
		{Name: "os6", Quant: Optional, Type: TypeString},
		{Name: "rs7", Quant: Required, Type: TypeString},
		{Name: "os8", Quant: Optional, Type: TypeString},
		{Name: "sa9", Quant: Array, Type: TypeString},
		{Name: "sa10", Quant: Array, Type: TypeString},
	},
}

// Schemas indexes every schema by wire tag, for generic dispatch in the
// supervisor's demux loop.
var Schemas = map[int32]*Schema{
	TagScprocQuery:       ScprocQuery,
	TagScprocResp:        ScprocResp,
	TagExec:              Exec,
	TagExecFailed:        ExecFailed,
	TagOpen:              Open,
	TagClose:             Close,
	TagReadFromInherited: ReadFromInherited,
	TagWriteToInherited:  WriteToInherited,
	TagSeekInInherited:   SeekInInherited,
	TagPipeRequest:       PipeRequest,
	TagPipeFds:           PipeFds,
	TagPipeCreated:       PipeCreated,
	TagPopen:             Popen,
	TagPopenParent:       PopenParent,
	TagPopenFd:           PopenFd,
	TagPopenFailed:       PopenFailed,
	TagSystem:            System,
	TagSystemRet:         SystemRet,
	TagPosixSpawn:        PosixSpawn,
	TagPosixSpawnParent:  PosixSpawnParent,
	TagPosixSpawnFailed:  PosixSpawnFailed,
	TagForkParent:        ForkParent,
	TagForkChild:         ForkChild,
	TagExit:              Exit,
	TagGenCall:           GenCall,
	TagFbError:           FbError,
	TagFbDebug:           FbDebug,
	TagLaObjsearch:       LaObjsearch,
	TagLaObjopen:         LaObjopen,
	TagFcntl:             Fcntl,
	TagRecvmsgScmRights:  RecvmsgScmRights,
	TagBarrier:           Barrier,
	TagTesting:           Testing,
}
