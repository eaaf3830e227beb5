package sidechannel

import (
	"testing"

	"golang.org/x/sys/unix"
)

func socketpair(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	return NewConn(fds[0]), NewConn(fds[1])
}

func TestConnWriteReadFrameRoundTrip(t *testing.T) {
	a, b := socketpair(t)
	defer a.Close()
	defer b.Close()

	if err := a.WriteFrame(42, []byte("hello")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	ackID, payload, err := b.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if ackID != 42 {
		t.Errorf("ackID = %d, want 42", ackID)
	}
	if string(payload) != "hello" {
		t.Errorf("payload = %q, want %q", payload, "hello")
	}
}

func TestConnBareAckEmptyFrame(t *testing.T) {
	a, b := socketpair(t)
	defer a.Close()
	defer b.Close()

	if err := a.WriteFrame(7, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	ackID, payload, err := b.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if ackID != 7 {
		t.Errorf("ackID = %d, want 7", ackID)
	}
	if len(payload) != 0 {
		t.Errorf("payload = %v, want empty", payload)
	}
}

func TestSendFDsRecvFDsRoundTrip(t *testing.T) {
	a, b := socketpair(t)
	defer a.Close()
	defer b.Close()

	pipeFds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair for ancillary fds: %v", err)
	}
	defer unix.Close(pipeFds[0])
	defer unix.Close(pipeFds[1])

	if err := a.SendFDs(9, []byte("payload"), []int{pipeFds[0]}); err != nil {
		t.Fatalf("SendFDs: %v", err)
	}

	ackID, payload, fds, err := b.RecvFDs(4)
	if err != nil {
		t.Fatalf("RecvFDs: %v", err)
	}
	defer func() {
		for _, fd := range fds {
			unix.Close(fd)
		}
	}()

	if ackID != 9 {
		t.Errorf("ackID = %d, want 9", ackID)
	}
	if string(payload) != "payload" {
		t.Errorf("payload = %q, want %q", payload, "payload")
	}
	if len(fds) != 1 {
		t.Fatalf("fds = %v, want exactly one", fds)
	}
}
