package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"airwave/internal/fileutil"
)

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := fileutil.ExpandPath("~/music")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "music") {
		t.Fatalf("got %q", got)
	}
}

func TestExpandPathPassthrough(t *testing.T) {
	got, err := fileutil.ExpandPath("/var/lib/airwave")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != "/var/lib/airwave" {
		t.Fatalf("got %q", got)
	}
	empty, err := fileutil.ExpandPath("  ")
	if err != nil || empty != "" {
		t.Fatalf("empty input: %q, %v", empty, err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "now_playing.txt")
	if err := fileutil.WriteFileAtomic(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic overwrite: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("content = %q", data)
	}
}
