package deps

import (
	"os"
	"path/filepath"
	"testing"

	"airwave/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}

	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestRequirementsFollowConfiguredBinaries(t *testing.T) {
	cfg := config.Default()
	cfg.Recognition.CaptureBinary = "/opt/tools/ffmpeg"
	cfg.Recognition.RecognizerBinary = ""

	reqs := Requirements(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "/opt/tools/ffmpeg" {
		t.Fatalf("unexpected capture command: %s", reqs[0].Command)
	}
	for _, req := range reqs {
		if !req.Optional {
			t.Fatalf("recognition tooling must be optional: %#v", req)
		}
	}

	statuses := CheckBinaries(reqs)
	if statuses[1].Available {
		t.Fatal("unconfigured recognizer must report unavailable")
	}
	if statuses[1].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %s", statuses[1].Detail)
	}
}
