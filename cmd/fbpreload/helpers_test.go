//go:build linux && cgo

package main

import "testing"

func TestMapsLinePathExtractsTrailingPath(t *testing.T) {
	line := []byte("7f1234560000-7f1234580000 r-xp 00000000 08:01 123456                   /usr/lib/libc.so.6")
	if got := mapsLinePath(line); got != "/usr/lib/libc.so.6" {
		t.Errorf("mapsLinePath() = %q, want /usr/lib/libc.so.6", got)
	}
}

func TestMapsLinePathAnonymousMapping(t *testing.T) {
	line := []byte("7f1234560000-7f1234580000 rw-p 00000000 00:00 0 ")
	if got := mapsLinePath(line); got != "" {
		t.Errorf("mapsLinePath() = %q, want empty for an anonymous mapping", got)
	}
}

func TestMapsLinePathStackPseudoPath(t *testing.T) {
	line := []byte("7ffee1234000-7ffee1256000 rw-p 00000000 00:00 0                          [stack]")
	if got := mapsLinePath(line); got != "" {
		t.Errorf("mapsLinePath() = %q, want empty for a non-file pseudo-path", got)
	}
}
