package interceptor

import (
	"time"

	"github.com/firebuild-go/fbcore"
	"github.com/firebuild-go/fbcore/internal/constants"
	"github.com/firebuild-go/fbcore/internal/fbb"
)

// ProcessInfo is the self-identification a process sends as its first
// message on a freshly (re)established connection.
type ProcessInfo struct {
	Pid        int
	Ppid       int
	Cwd        string
	Executable string
	Argv       []string
	Env        []string
	Libs       []string
}

// ScprocResponse is the supervisor's reply to scproc_query.
type ScprocResponse struct {
	Shortcut   bool
	ExitStatus int32
	HasExit    bool
	DebugFlags int32
	HasDebug   bool
}

// Handshake sends scproc_query and blocks for scproc_resp, the handshake
// every freshly exec'd process performs on its control connection before
// doing anything else. If the response says shortcut, the caller must
// _exit(ExitStatus) immediately and never return to the application.
func (h *Hooks) Handshake(info ProcessInfo) (ScprocResponse, error) {
	b := fbb.NewBuilder(fbb.ScprocQuery)
	b.SetInt("pid", int64(info.Pid))
	b.SetInt("ppid", int64(info.Ppid))
	b.SetString("cwd", info.Cwd)
	b.SetString("executable", info.Executable)
	b.SetStringArray("argv", info.Argv)
	b.SetStringArray("env", info.Env)
	b.SetStringArray("libs", info.Libs)

	payload, err := h.sendAcked(b)
	if err != nil {
		return ScprocResponse{}, err
	}

	msg, err := fbb.Parse(fbb.ScprocResp, payload)
	if err != nil {
		return ScprocResponse{}, fbcore.WrapError("interceptor.Handshake", err)
	}

	resp := ScprocResponse{Shortcut: msg.Int("shortcut") != 0}
	if msg.HasInt("exit_status") {
		resp.HasExit = true
		resp.ExitStatus = int32(msg.Int("exit_status"))
	}
	if msg.HasInt("debug_flags") {
		resp.HasDebug = true
		resp.DebugFlags = int32(msg.Int("debug_flags"))
	}
	return resp, nil
}

// ExecRequest describes one exec-family call, already normalized to the
// fields the exec message carries.
type ExecRequest struct {
	File    string
	Fd      int
	HasFd   bool
	Argv    []string
	Env     []string
	Path    string
	HasPath bool
}

// FixupEnv re-injects LD_PRELOAD/LD_LIBRARY_PATH/FB_SOCKET/FB_SEMAPHORE/
// FB_INSERT_TRACE_MARKERS into env if the application removed or changed
// them.
func (h *Hooks) FixupEnv(env []string) []string {
	want := map[string]string{
		constants.EnvLDPreload:         h.Config.LDPreload,
		constants.EnvLDLibraryPath:     h.Config.LDLibraryPath,
		constants.EnvSocket:            h.Config.Socket,
		constants.EnvSemaphore:         h.Config.Semaphore,
		constants.EnvInsertTraceMarkers: traceMarkerEnvValue(h.Config.InsertTraceMarkers),
	}

	out := make([]string, 0, len(env)+len(want))
	seen := make(map[string]bool, len(want))
	for _, kv := range env {
		key := envKey(kv)
		if v, ok := want[key]; ok {
			if v == "" {
				seen[key] = true
				continue
			}
			out = append(out, key+"="+v)
			seen[key] = true
			continue
		}
		out = append(out, kv)
	}
	for key, v := range want {
		if !seen[key] && v != "" {
			out = append(out, key+"="+v)
		}
	}
	return out
}

func traceMarkerEnvValue(on bool) string {
	if on {
		return "1"
	}
	return ""
}

func envKey(kv string) string {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i]
		}
	}
	return kv
}

// ExecBefore implements the exec family's "before" step: build and send
// the exec message (acked, so the supervisor observes it before any
// child-side scproc_query can race it), carrying a rusage snapshot taken
// by the caller between execs. It returns once the ack arrives; the
// caller then performs the real exec.
func (h *Hooks) ExecBefore(req ExecRequest, utimeUs, stimeUs int64) error {
	b := fbb.NewBuilder(fbb.Exec)
	b.SetString("file", req.File)
	if req.HasFd {
		b.SetInt("fd", int64(req.Fd))
	}
	b.SetStringArray("argv", req.Argv)
	b.SetStringArray("env", h.FixupEnv(req.Env))
	if req.HasPath {
		b.SetString("path", req.Path)
	}
	b.SetInt("rusage_utime_us", utimeUs)
	b.SetInt("rusage_stime_us", stimeUs)

	_, err := h.sendAcked(b)
	return err
}

// ExecFailed implements the exec family's return path: if the libc exec
// call returns at all, the exec never happened and the supervisor must be
// told before anything else, acked, so it cannot mistake a still-running
// process for one that successfully replaced its image.
func (h *Hooks) ExecFailed(errno int) error {
	b := fbb.NewBuilder(fbb.ExecFailed)
	b.SetInt("error_no", int64(errno))
	_, err := h.sendAcked(b)
	return err
}

// rusageSince computes utime/stime deltas in microseconds, the units
// ExecBefore takes; nothing in this module calls it. It lives here
// rather than in procstate because it is pure arithmetic on two
// already-sampled durations, not state.
func rusageSince(startUtime, startStime, nowUtime, nowStime time.Duration) (utimeUs, stimeUs int64) {
	return (nowUtime - startUtime).Microseconds(), (nowStime - startStime).Microseconds()
}
