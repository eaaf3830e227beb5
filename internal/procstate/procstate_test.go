package procstate

import "testing"

func TestFDTableNoteReadFiresOnlyOnce(t *testing.T) {
	tbl := NewFDTable()

	if first := tbl.NoteRead(5, false); !first {
		t.Fatal("first read on fd 5 should report first=true")
	}
	if first := tbl.NoteRead(5, false); first {
		t.Fatal("second read on fd 5 should report first=false")
	}
	if first := tbl.NoteRead(5, true); !first {
		t.Fatal("pread on fd 5 tracks separately from read and should report first=true")
	}
}

func TestFDTableMoveCopiesToNewfdAndKeepsOld(t *testing.T) {
	tbl := NewFDTable()
	tbl.NoteRead(3, false)
	tbl.MarkPipeEndpoint(3)

	tbl.Move(3, 9)

	if got := tbl.Get(9); !got.NotifiedRead || !got.IsPipeEndpoint {
		t.Fatalf("fd 9 after Move = %+v, want NotifiedRead and IsPipeEndpoint set", got)
	}
	if got := tbl.Get(3); !got.NotifiedRead || !got.IsPipeEndpoint {
		t.Fatalf("fd 3 after Move = %+v, want its own flags kept", got)
	}
}

func TestFDTableClearRangeRespectsCloexecOnly(t *testing.T) {
	tbl := NewFDTable()
	tbl.NoteRead(4, false)

	tbl.ClearRange(0, 10, true)
	if got := tbl.Get(4); !got.NotifiedRead {
		t.Fatal("ClearRange with cloexecOnly=true must not clear fd state")
	}

	tbl.ClearRange(0, 10, false)
	if got := tbl.Get(4); got.NotifiedRead {
		t.Fatal("ClearRange with cloexecOnly=false must clear fd state")
	}
}

func TestDangerZoneDelaysAndDrainsInAscendingOrder(t *testing.T) {
	var z DangerZone
	z.Enter()

	if !z.InZone() {
		t.Fatal("InZone should be true after Enter")
	}
	z.Delay(17)
	z.Delay(2)
	z.Delay(40)

	if closed := z.Leave(); !closed {
		t.Fatal("Leave should report the zone closed after a single Enter")
	}

	got := z.DrainDelayed()
	want := []int{2, 17, 40}
	if len(got) != len(want) {
		t.Fatalf("DrainDelayed = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DrainDelayed = %v, want %v", got, want)
		}
	}

	if again := z.DrainDelayed(); again != nil {
		t.Fatalf("second DrainDelayed = %v, want nil", again)
	}
}

func TestDangerZoneNestedEnterLeave(t *testing.T) {
	var z DangerZone
	z.Enter()
	z.Enter()

	if closed := z.Leave(); closed {
		t.Fatal("Leave after nested Enter should not report the zone closed")
	}
	if closed := z.Leave(); !closed {
		t.Fatal("final Leave should report the zone closed")
	}
}

func TestSpawnActionsPoolOrdersActionsAsIssued(t *testing.T) {
	pool := NewSpawnActionsPool()
	var key uintptr = 0xdeadbeef

	pool.Init(key)
	pool.AddOpen(key, 3, 0x241, 384, "/tmp/x")
	pool.AddClose(key, 4)
	pool.AddDup2(key, 5, 6)

	got := pool.Actions(key)
	want := []string{"o 3 577 384 /tmp/x", "c 4", "d 5 6"}
	if len(got) != len(want) {
		t.Fatalf("Actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Actions[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPopenSetLookup(t *testing.T) {
	set := NewPopenSet()
	set.Add(0x1234, 9)

	if fd, ok := set.Lookup(0x1234); !ok || fd != 9 {
		t.Fatalf("Lookup = (%d, %v), want (9, true)", fd, ok)
	}

	set.Remove(0x1234)
	if _, ok := set.Lookup(0x1234); ok {
		t.Fatal("Lookup after Remove should report ok=false")
	}
}
