package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsScript(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"a.tengo", true},
		{"dir/B.LUA", true},
		{"world.yaml", false},
		{"noext", false},
	}
	for _, c := range cases {
		if got := IsScript(c.path); got != c.want {
			t.Fatalf("IsScript(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestWatcherReportsScripts(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer w.Close()

	os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644)
	script := filepath.Join(dir, "ball.tengo")
	if err := os.WriteFile(script, []byte("begin := func(arb) { return true }"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case got := <-w.Events:
		if got != filepath.Clean(script) {
			t.Fatalf("expected %s, got %s", script, got)
		}
	case err := <-w.Errors:
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for script event")
	}
}

func TestWatcherCloseIdempotent(t *testing.T) {
	w, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, ok := <-w.Events; ok {
		t.Fatalf("Events should be closed")
	}
}

func TestNewMissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for a missing directory")
	}
}
