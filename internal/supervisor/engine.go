package supervisor

import "github.com/firebuild-go/fbcore/internal/fbb"

// ProcessQuery is what the dispatch loop hands the cache engine once a
// freshly connected process's scproc_query has been parsed: enough to let
// the engine decide whether this invocation can be shortcut entirely.
type ProcessQuery struct {
	Pid        int
	Ppid       int
	Cwd        string
	Executable string
	Argv       []string
	Env        []string
	Libs       []string
}

// ProcessDecision is the cache engine's answer to a ProcessQuery, carrying
// exactly the fields scproc_resp needs on the wire.
type ProcessDecision struct {
	Shortcut   bool
	ExitStatus int
	DebugFlags int
}

// CacheEngine is the fingerprint/cache collaborator the dispatch loop
// defers to: it owns every decision about whether a process's work has
// already been done and can be shortcut, and it gets to observe the whole
// event stream as it happens. A real implementation is out of scope here;
// NoopEngine exists so the dispatch loop is runnable and testable without
// one.
type CacheEngine interface {
	// Identify is called once per freshly connected process, right after
	// scproc_query is parsed, before any reply is sent.
	Identify(q ProcessQuery) ProcessDecision

	// Observe is called for every other message a process sends except
	// pipe_request, which the dispatcher answers itself, in
	// delivery order (which is not necessarily shmq-before-socket or
	// vice versa; see Dispatcher.Step). msg is already parsed against its
	// schema; tag identifies which one.
	Observe(pid int, tag int32, msg *fbb.Serialized)
}

// NoopEngine never shortcuts anything and ignores every observation. It is
// the engine cmd/fbsupervisord wires up until a real collaborator exists.
type NoopEngine struct{}

func (NoopEngine) Identify(ProcessQuery) ProcessDecision { return ProcessDecision{Shortcut: false} }
func (NoopEngine) Observe(int, int32, *fbb.Serialized)   {}
