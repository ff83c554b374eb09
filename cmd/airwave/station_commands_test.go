package main

import (
	"regexp"
	"testing"
)

func TestStationsListShowsSeededStations(t *testing.T) {
	setupCLITestEnv(t)

	out, err := runCLI(t, []string{"stations", "list"})
	if err != nil {
		t.Fatalf("stations list: %v", err)
	}
	requireContains(t, out, "Nostalgia OST")
	requireContains(t, out, "Night City Radio")
}

func TestStationsAddAndRemove(t *testing.T) {
	setupCLITestEnv(t)

	out, err := runCLI(t, []string{"stations", "add", "Test FM", "https://stream.example.net/test.mp3", "--country", "Iceland"})
	if err != nil {
		t.Fatalf("stations add: %v", err)
	}
	requireContains(t, out, `Added station "Test FM"`)

	idPattern := regexp.MustCompile(`id (\d+)`)
	match := idPattern.FindStringSubmatch(out)
	if match == nil {
		t.Fatalf("expected an id in output, got:\n%s", out)
	}

	out, err = runCLI(t, []string{"stations", "list"})
	if err != nil {
		t.Fatalf("stations list: %v", err)
	}
	requireContains(t, out, "Test FM")
	requireContains(t, out, "Iceland")

	out, err = runCLI(t, []string{"stations", "remove", match[1]})
	if err != nil {
		t.Fatalf("stations remove: %v", err)
	}
	requireContains(t, out, "Removed station")

	if _, err := runCLI(t, []string{"stations", "remove", match[1]}); err == nil {
		t.Fatal("expected removing an absent station to fail")
	}
}

func TestUnknownStationIDIsRejected(t *testing.T) {
	setupCLITestEnv(t)

	if _, err := runCLI(t, []string{"stations", "remove", "not-a-number"}); err == nil {
		t.Fatal("expected non-numeric id to be rejected")
	}
}
