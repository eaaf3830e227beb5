package fbb

import "testing"

func TestTestingMessageRoundTrip(t *testing.T) {
	b := NewBuilder(Testing)
	b.SetInt("ri1", 42)
	b.SetInt("oi2", 100)
	b.SetInt("ri3", -200)
	b.SetString("rs5", "foo")
	b.SetString("os6", "loremipsum")
	b.SetString("rs7", "quux")
	b.SetStringArray("sa9", []string{"item1", "item02", "item003"})
	b.SetStringArray("sa10", nil)

	size := b.Measure()
	buf := make([]byte, size)
	n := b.Serialize(buf)
	if n != size {
		t.Fatalf("Serialize wrote %d bytes, Measure said %d", n, size)
	}
	if size%8 != 0 {
		t.Fatalf("serialized size %d is not 8-byte aligned", size)
	}

	msg, err := Parse(Testing, buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if msg.Tag() != TagTesting {
		t.Fatalf("tag at offset 0 = %d, want %d", msg.Tag(), TagTesting)
	}
	if got := msg.Int("ri1"); got != 42 {
		t.Errorf("ri1 = %d, want 42", got)
	}
	if !msg.HasInt("oi2") {
		t.Error("has_oi2 = false, want true")
	}
	if got := msg.Int("oi2"); got != 100 {
		t.Errorf("oi2 = %d, want 100", got)
	}
	if got := msg.Int("ri3"); got != -200 {
		t.Errorf("ri3 = %d, want -200", got)
	}
	if msg.HasInt("oi4") {
		t.Error("has_oi4 = true, want false")
	}
	if got := msg.String("rs5"); got != "foo" {
		t.Errorf("rs5 = %q, want %q", got, "foo")
	}
	if !msg.HasString("os6") {
		t.Error("has_os6 = false, want true")
	}
	if got := msg.String("os6"); got != "loremipsum" {
		t.Errorf("os6 = %q, want %q", got, "loremipsum")
	}
	if got := msg.String("rs7"); got != "quux" {
		t.Errorf("rs7 = %q, want %q", got, "quux")
	}
	if msg.HasString("os8") {
		t.Error("has_os8 = true, want false")
	}

	if got := msg.ArrayLen("sa9"); got != 3 {
		t.Fatalf("sa9 count = %d, want 3", got)
	}
	want := []string{"item1", "item02", "item003"}
	for i, w := range want {
		if got := msg.StringArrayAt("sa9", i); got != w {
			t.Errorf("sa9[%d] = %q, want %q", i, got, w)
		}
	}

	if got := msg.ArrayLen("sa10"); got != 0 {
		t.Errorf("sa10.count = %d, want 0", got)
	}
	if !msg.HasArray("sa10") {
		t.Error("sa10 should be present-but-empty, not absent")
	}
}

func TestMeasureMatchesSerialize(t *testing.T) {
	cases := []func() *Builder{
		func() *Builder {
			b := NewBuilder(Open)
			b.SetInt("dirfd", -100)
			b.SetString("pathname", "/tmp/x")
			b.SetInt("flags", 0x241)
			b.SetInt("mode", 0600)
			b.SetInt("ret", 3)
			b.SetInt("pre_open_sent", 1)
			return b
		},
		func() *Builder {
			b := NewBuilder(PosixSpawn)
			b.SetString("file", "/bin/ls")
			b.SetStringArray("argv", []string{"ls", "-l"})
			b.SetStringArray("env", []string{"PATH=/usr/bin"})
			b.SetStringArray("file_actions", []string{"o 3 577 384 /tmp/x", "c 4", "d 5 6"})
			return b
		},
		func() *Builder {
			return NewBuilder(Barrier)
		},
	}

	for i, mk := range cases {
		b := mk()
		size := b.Measure()
		buf := make([]byte, size)
		n := b.Serialize(buf)
		if n != size {
			t.Errorf("case %d: Serialize wrote %d, Measure said %d", i, n, size)
		}
	}
}

func TestAbsentOptionalIntsAreNotPresent(t *testing.T) {
	b := NewBuilder(ScprocResp)
	b.SetInt("shortcut", 0)

	buf := make([]byte, b.Measure())
	b.Serialize(buf)

	msg, err := Parse(ScprocResp, buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if msg.HasInt("exit_status") {
		t.Error("exit_status should be absent")
	}
	if msg.HasInt("debug_flags") {
		t.Error("debug_flags should be absent")
	}
}

func TestOptionalStringRoundTrip(t *testing.T) {
	outer := NewBuilder(LaObjopen)
	outer.SetString("name", "libfoo.so")
	outer.SetString("resolved_path", "/usr/lib/libfoo.so")

	buf := make([]byte, outer.Measure())
	outer.Serialize(buf)

	msg, err := Parse(LaObjopen, buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := msg.String("name"); got != "libfoo.so" {
		t.Errorf("name = %q", got)
	}
	if !msg.HasString("resolved_path") {
		t.Error("resolved_path should be present")
	}
	if got := msg.String("resolved_path"); got != "/usr/lib/libfoo.so" {
		t.Errorf("resolved_path = %q", got)
	}
}
