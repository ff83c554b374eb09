package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"airwave/internal/config"
	"airwave/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyTrackIdentified(context.Background(), "HOME", "Resonance"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	var captured struct {
		title    string
		tags     string
		priority string
		body     string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyTrackIdentified(context.Background(), "HOME", "Resonance"); err != nil {
		t.Fatalf("NotifyTrackIdentified: %v", err)
	}
	if captured.title != "Airwave - Track Identified" {
		t.Fatalf("title = %q", captured.title)
	}
	if captured.body != "HOME - Resonance" {
		t.Fatalf("body = %q", captured.body)
	}
	if captured.tags != "airwave,identify" {
		t.Fatalf("tags = %q", captured.tags)
	}

	if err := svc.NotifyError(context.Background(), errors.New("stream unreachable"), "playback"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}
	if captured.body != "Error with playback: stream unreachable" {
		t.Fatalf("error body = %q", captured.body)
	}
	if captured.priority != "high" {
		t.Fatalf("error priority = %q", captured.priority)
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
