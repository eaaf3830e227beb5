package interceptor

import (
	"testing"

	"github.com/firebuild-go/fbcore/internal/procstate"
)

func TestSignalTrampolinesInstallReturnsPreviousHandler(t *testing.T) {
	tr := NewSignalTrampolines()

	previous := tr.Install(2, 0xdead)
	if previous != 0 {
		t.Fatalf("first Install for a fresh signum returned %#x, want 0", previous)
	}

	previous = tr.Install(2, 0xbeef)
	if previous != 0xdead {
		t.Fatalf("second Install returned %#x, want the first handler back", previous)
	}

	if got := tr.UserHandler(2); got != 0xbeef {
		t.Fatalf("UserHandler = %#x, want the most recently installed handler", got)
	}
}

func TestDelayOrRunDefersInsideDangerZone(t *testing.T) {
	h := &Hooks{DZT: procstate.NewDangerZoneTable()}

	h.DZ().Enter()
	if ran := h.DelayOrRun(11); ran {
		t.Fatal("DelayOrRun should defer while the danger zone is open")
	}

	reraise, closed := h.LeaveDangerZone()
	if !closed {
		t.Fatal("LeaveDangerZone should report the zone closed")
	}
	if len(reraise) != 1 || reraise[0] != 11 {
		t.Fatalf("LeaveDangerZone reraise = %v, want [11]", reraise)
	}
}

func TestDelayOrRunOutsideDangerZoneTracksRunningDepth(t *testing.T) {
	h := &Hooks{DZT: procstate.NewDangerZoneTable()}

	if ran := h.DelayOrRun(11); !ran {
		t.Fatal("DelayOrRun should run immediately outside the danger zone")
	}
	if h.DZ().SignalHandlerRunningDepth != 1 {
		t.Fatalf("SignalHandlerRunningDepth = %d, want 1", h.DZ().SignalHandlerRunningDepth)
	}

	h.SignalHandlerDone()
	if h.DZ().SignalHandlerRunningDepth != 0 {
		t.Fatalf("SignalHandlerRunningDepth after SignalHandlerDone = %d, want 0", h.DZ().SignalHandlerRunningDepth)
	}
}
