package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"SetupSentinel/internal/model"
)

func TestTelegramNotifier_Notify(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("TOKEN", "42", "")
	tg.APIBase = srv.URL
	if err := tg.Notify(context.Background(), "EURUSD", "M15", "Retrace confirmed, ALL conditions met!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/botTOKEN/sendMessage" {
		t.Errorf("unexpected path %s", path)
	}
	if got["chat_id"] != "42" || got["parse_mode"] != "HTML" {
		t.Errorf("unexpected payload %v", got)
	}
	if !strings.Contains(got["text"], "<b>EURUSD - M15</b>") {
		t.Errorf("text missing header: %q", got["text"])
	}
}

func TestTelegramNotifier_Failure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("TOKEN", "42", "")
	tg.APIBase = srv.URL
	tg.MaxRetries = 0
	err := tg.Notify(context.Background(), "EURUSD", "H1", "x")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected status error, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", hits.Load())
	}
}

func TestTelegramNotifier_RetryHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("TOKEN", "42", "")
	tg.APIBase = srv.URL
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := tg.SendWithRetry(ctx, "x", 3); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error during backoff, got %v", err)
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Notify(context.Background(), "XAUUSD", "H1", "Conditions met, checking M15..."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Symbol != "XAUUSD" || got.Title != "H1" || got.Message != "Conditions met, checking M15..." || got.TS == "" {
		t.Errorf("unexpected payload %+v", got)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	if err := NewWebhookNotifier(failing.URL).Notify(context.Background(), "XAUUSD", "H1", "x"); err == nil {
		t.Error("expected error on 500")
	}
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Notify(context.Context, string, string, string) error {
	s.calls++
	return s.err
}

func TestMulti_DeliversToAll(t *testing.T) {
	boom := errors.New("boom")
	a, b, c := &stubNotifier{}, &stubNotifier{err: boom}, &stubNotifier{}
	err := Multi{a, b, c, NewLogNotifier()}.Notify(context.Background(), "EURUSD", "H1", "x")
	if !errors.Is(err, boom) {
		t.Errorf("expected joined error, got %v", err)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Errorf("expected every notifier called once, got %d %d %d", a.calls, b.calls, c.calls)
	}
	if err := (Multi{}).Notify(context.Background(), "EURUSD", "H1", "x"); err != nil {
		t.Errorf("empty fan-out should succeed, got %v", err)
	}
}

func TestFormatAlert(t *testing.T) {
	at := time.Date(2025, 3, 5, 15, 0, 30, 0, time.UTC)
	msg := FormatAlert("EURUSD", "M15", "a < b", at)
	for _, want := range []string{"<b>EURUSD - M15</b>", "a &lt; b", "2025-03-05 15:00:30 UTC"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestFormatChecklist(t *testing.T) {
	out := FormatChecklist(model.Flags{Breach: true, AllConfirmed: true})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "✅") || !strings.HasPrefix(lines[1], "⬜") || !strings.HasPrefix(lines[4], "✅") {
		t.Errorf("unexpected marks:\n%s", out)
	}
}
