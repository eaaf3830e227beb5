package shmq

import (
	"fmt"
	"os"
	"testing"
)

func shmName(t *testing.T) string {
	return fmt.Sprintf("/fbcore-shmq-test-%d-%s", os.Getpid(), t.Name())
}

func TestWriterGrowsRegionWhenMessageExceedsInitialSize(t *testing.T) {
	name := shmName(t)
	w, err := NewWriter(name)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	sizes := []int32{7, 4097, 3}
	for i, sz := range sizes {
		body, err := w.NewMessage(sz)
		if err != nil {
			t.Fatalf("NewMessage(%d): %v", sz, err)
		}
		for j := range body {
			body[j] = byte(i + 1)
		}
		w.AddMessage(int32(i + 1))
	}

	if w.size <= initialSize {
		t.Errorf("writer region size = %d, want > initial size %d after a %d-byte message", w.size, initialSize, 4097)
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	name := shmName(t)
	w, err := NewWriter(name)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	payloads := [][]byte{
		[]byte("small"),
		make([]byte, 4097),
		[]byte("x"),
	}
	for i := range payloads[1] {
		payloads[1][i] = byte(i)
	}

	for i, p := range payloads {
		body, err := w.NewMessage(int32(len(p)))
		if err != nil {
			t.Fatalf("NewMessage: %v", err)
		}
		copy(body, p)
		w.AddMessage(int32(i + 1))
	}

	r, err := NewReader(name)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	for i, want := range payloads {
		got, ok, err := r.PeekTail()
		if err != nil {
			t.Fatalf("PeekTail: %v", err)
		}
		if !ok {
			t.Fatalf("message %d: queue unexpectedly empty", i)
		}
		if len(got) != len(want) {
			t.Fatalf("message %d: len = %d, want %d", i, len(got), len(want))
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("message %d byte %d = %d, want %d", i, j, got[j], want[j])
			}
		}
		if ack := r.PeekTailAckID(); ack != int32(i+1) {
			t.Errorf("message %d ack = %d, want %d", i, ack, i+1)
		}
		r.DiscardTail()
	}

	if _, ok, err := r.PeekTail(); err != nil {
		t.Fatalf("PeekTail on empty queue: %v", err)
	} else if ok {
		t.Error("queue should be empty after discarding every message")
	}
}

func TestWriterResizeMessage(t *testing.T) {
	name := shmName(t)
	w, err := NewWriter(name)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Close()

	body, err := w.NewMessage(4)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	copy(body, []byte("abcd"))

	body, err = w.ResizeMessage(4096)
	if err != nil {
		t.Fatalf("ResizeMessage(grow): %v", err)
	}
	if len(body) != 4096 {
		t.Fatalf("resized body len = %d, want 4096", len(body))
	}
	if body[0] != 'a' || body[3] != 'd' {
		t.Errorf("resize did not preserve prior contents: %v", body[:4])
	}

	body, err = w.ResizeMessage(2)
	if err != nil {
		t.Fatalf("ResizeMessage(shrink): %v", err)
	}
	if len(body) != 2 {
		t.Fatalf("resized body len = %d, want 2", len(body))
	}

	w.AddMessage(1)
}
