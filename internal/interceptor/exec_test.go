package interceptor

import (
	"testing"

	"github.com/firebuild-go/fbcore/internal/config"
)

func testHooksWithConfig(cfg *config.Config) *Hooks {
	return &Hooks{Config: cfg}
}

func TestFixupEnvReinjectsRemovedVars(t *testing.T) {
	cfg := &config.Config{
		LDPreload:          "/opt/fb/libfb.so",
		LDLibraryPath:      "/opt/fb/lib",
		Socket:             "/tmp/fb-sock",
		Semaphore:          "/fb-sem",
		InsertTraceMarkers: true,
	}
	h := testHooksWithConfig(cfg)

	got := h.FixupEnv([]string{"PATH=/usr/bin", "HOME=/root"})

	want := map[string]string{
		"PATH":                    "/usr/bin",
		"HOME":                    "/root",
		"LD_PRELOAD":              "/opt/fb/libfb.so",
		"LD_LIBRARY_PATH":         "/opt/fb/lib",
		"FB_SOCKET":               "/tmp/fb-sock",
		"FB_SEMAPHORE":            "/fb-sem",
		"FB_INSERT_TRACE_MARKERS": "1",
	}
	if len(got) != len(want) {
		t.Fatalf("FixupEnv returned %d vars, want %d: %v", len(got), len(want), got)
	}
	gotSet := map[string]string{}
	for _, kv := range got {
		gotSet[envKey(kv)] = kv[len(envKey(kv))+1:]
	}
	for k, v := range want {
		if gotSet[k] != v {
			t.Errorf("%s = %q, want %q", k, gotSet[k], v)
		}
	}
}

func TestFixupEnvOverridesTamperedValue(t *testing.T) {
	cfg := &config.Config{LDPreload: "/opt/fb/libfb.so"}
	h := testHooksWithConfig(cfg)

	got := h.FixupEnv([]string{"LD_PRELOAD=/tmp/evil.so"})

	for _, kv := range got {
		if envKey(kv) == "LD_PRELOAD" {
			if kv != "LD_PRELOAD=/opt/fb/libfb.so" {
				t.Errorf("LD_PRELOAD = %q, want the configured value restored", kv)
			}
			return
		}
	}
	t.Fatal("LD_PRELOAD missing from FixupEnv output")
}

func TestReportableFcntlCmdsAllowlist(t *testing.T) {
	if !reportableFcntlCmds[fcntlFSetFD] {
		t.Error("F_SETFD should be reportable")
	}
	if reportableFcntlCmds[99] {
		t.Error("an arbitrary advisory command should not be reportable")
	}
}
