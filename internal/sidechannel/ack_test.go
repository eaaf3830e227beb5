package sidechannel

import (
	"testing"
	"time"
)

func TestAckTableWaitReturnsCompletedPayload(t *testing.T) {
	table := NewAckTable()
	id := table.Begin()

	go func() {
		time.Sleep(time.Millisecond)
		table.Complete(id, []byte("reply"), nil)
	}()

	payload, err := table.Wait(id)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if string(payload) != "reply" {
		t.Errorf("payload = %q, want %q", payload, "reply")
	}
}

func TestAckTableWaitFDsReturnsCompletedFDs(t *testing.T) {
	table := NewAckTable()
	id := table.Begin()

	go func() {
		time.Sleep(time.Millisecond)
		table.CompleteFDs(id, nil, []int{3, 4}, nil)
	}()

	_, fds, err := table.WaitFDs(id)
	if err != nil {
		t.Fatalf("WaitFDs: %v", err)
	}
	if len(fds) != 2 || fds[0] != 3 || fds[1] != 4 {
		t.Errorf("fds = %v, want [3 4]", fds)
	}
}

func TestAckTableBeginNeverHandsOutReservedID(t *testing.T) {
	table := NewAckTable()
	for i := 0; i < 5; i++ {
		if id := table.Begin(); id == 0 {
			t.Fatal("Begin returned reserved ack id 0")
		}
	}
}

func TestAckTableCancelFreesSlotWithoutBlocking(t *testing.T) {
	table := NewAckTable()
	id := table.Begin()
	table.Cancel(id)

	if _, ok := table.pending[id]; ok {
		t.Fatal("Cancel should remove the pending slot")
	}
}
