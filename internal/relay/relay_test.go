package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"catchpost/internal/forward"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubForwarder returns a canned result and records the last call.
type stubForwarder struct {
	result       forward.Result
	panicMsg     string
	calls        int
	lastText     string
	lastOverride string
}

func (s *stubForwarder) Forward(ctx context.Context, text, override string) forward.Result {
	s.calls++
	s.lastText = text
	s.lastOverride = override
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.result
}

func newRelay(stub *stubForwarder) *Relay {
	return New(Config{Forwarder: stub, Logger: testLogger()})
}

func doRequest(t *testing.T, rl *Relay, method, target string) (int, Response) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	rl.Handle(rr, req)

	var resp Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rr.Body.String())
	}
	return rr.Code, resp
}

func TestHandle_Success(t *testing.T) {
	stub := &stubForwarder{result: forward.Result{Delivered: true, Channel: "C-default"}}

	code, resp := doRequest(t, newRelay(stub), "GET", "/any/path")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %q", resp.Status)
	}
	if resp.Method != "GET" || resp.Path != "/any/path" {
		t.Errorf("expected method/path echo, got %s %s", resp.Method, resp.Path)
	}
	if resp.SlackChannelOverride != "" {
		t.Errorf("no override supplied, got %q", resp.SlackChannelOverride)
	}
	if stub.calls != 1 {
		t.Errorf("expected exactly one forward call, got %d", stub.calls)
	}
}

func TestHandle_SuccessWithOverride(t *testing.T) {
	stub := &stubForwarder{result: forward.Result{Delivered: true, Channel: "C-custom"}}

	code, resp := doRequest(t, newRelay(stub), "POST", "/hook?channel_id=C-custom")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.SlackChannelOverride != "C-custom" {
		t.Errorf("expected override echo, got %q", resp.SlackChannelOverride)
	}
	if !strings.Contains(resp.Message, "C-custom") {
		t.Errorf("message should mention the custom channel: %q", resp.Message)
	}
	if stub.lastOverride != "C-custom" {
		t.Errorf("override not passed to forwarder, got %q", stub.lastOverride)
	}
}

func TestHandle_ChannelNotFound(t *testing.T) {
	stub := &stubForwarder{result: forward.Result{Channel: "C-default", Err: "channel_not_found"}}

	code, resp := doRequest(t, newRelay(stub), "GET", "/")
	if code != http.StatusOK {
		t.Fatalf("forward failures must still return 200, got %d", code)
	}
	if resp.Status != "warning" {
		t.Errorf("expected status warning, got %q", resp.Status)
	}
	if !strings.Contains(resp.Message, "C-default") || !strings.Contains(resp.Message, "not found") {
		t.Errorf("message should name the missing channel: %q", resp.Message)
	}
	if resp.Error != "channel_not_found" {
		t.Errorf("expected raw error code, got %q", resp.Error)
	}
}

func TestHandle_ChannelNotFound_WithOverride(t *testing.T) {
	stub := &stubForwarder{result: forward.Result{Channel: "C-custom", Err: "channel_not_found"}}

	_, resp := doRequest(t, newRelay(stub), "GET", "/x?channel_id=C-custom")
	if !strings.Contains(resp.Message, "C-custom") {
		t.Errorf("message should name the overridden channel: %q", resp.Message)
	}
}

func TestHandle_NotInChannel(t *testing.T) {
	stub := &stubForwarder{result: forward.Result{Channel: "C-default", Err: "not_in_channel"}}

	_, resp := doRequest(t, newRelay(stub), "GET", "/")
	if resp.Status != "warning" {
		t.Errorf("expected status warning, got %q", resp.Status)
	}
	if !strings.Contains(resp.Message, "not a member") || !strings.Contains(resp.Message, "C-default") {
		t.Errorf("message should say the bot is not a member: %q", resp.Message)
	}
}

func TestHandle_ChannelArchived(t *testing.T) {
	stub := &stubForwarder{result: forward.Result{Channel: "C-default", Err: "is_archived"}}

	_, resp := doRequest(t, newRelay(stub), "GET", "/")
	if !strings.Contains(resp.Message, "archived") || !strings.Contains(resp.Message, "C-default") {
		t.Errorf("message should say the channel is archived: %q", resp.Message)
	}
}

func TestHandle_GenericChannelError(t *testing.T) {
	stub := &stubForwarder{result: forward.Result{Channel: "C-default", Err: "restricted_channel_posting"}}

	_, resp := doRequest(t, newRelay(stub), "GET", "/")
	if !strings.Contains(resp.Message, "restricted_channel_posting") || !strings.Contains(resp.Message, "C-default") {
		t.Errorf("generic channel errors include the raw error and channel: %q", resp.Message)
	}
}

func TestHandle_GenericFailure(t *testing.T) {
	stub := &stubForwarder{result: forward.Result{Channel: "C-default", Err: "rate_limited"}}

	_, resp := doRequest(t, newRelay(stub), "GET", "/")
	if resp.Status != "warning" {
		t.Errorf("expected status warning, got %q", resp.Status)
	}
	if !strings.Contains(resp.Message, "failed") {
		t.Errorf("expected generic failure message: %q", resp.Message)
	}
	if resp.Error != "rate_limited" {
		t.Errorf("raw error belongs in a separate field, got %q", resp.Error)
	}
}

func TestHandle_GenericFailure_NotesOverride(t *testing.T) {
	stub := &stubForwarder{result: forward.Result{Channel: "C-custom", Err: "fatal_error"}}

	_, resp := doRequest(t, newRelay(stub), "GET", "/x?channel_id=C-custom")
	if !strings.Contains(resp.Message, "C-custom") {
		t.Errorf("failure message should note the attempted override: %q", resp.Message)
	}
}

func TestHandle_ForwarderPanic(t *testing.T) {
	stub := &stubForwarder{panicMsg: "boom"}

	code, resp := doRequest(t, newRelay(stub), "GET", "/")
	if code != http.StatusOK {
		t.Fatalf("a panicking forwarder must still produce a 200, got %d", code)
	}
	if resp.Status != "warning" {
		t.Errorf("expected status warning, got %q", resp.Status)
	}
	if !strings.Contains(resp.Error, "boom") {
		t.Errorf("panic value should surface as the error, got %q", resp.Error)
	}
}

func TestHandle_AlwaysExactlyOneResponse(t *testing.T) {
	stub := &stubForwarder{result: forward.Result{Delivered: true, Channel: "C-default"}}
	rl := newRelay(stub)

	for _, method := range []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"} {
		code, resp := doRequest(t, rl, method, "/some/deep/path")
		if code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", method, code)
		}
		if resp.Method != method {
			t.Errorf("expected method %s echoed, got %s", method, resp.Method)
		}
	}
}

// chanMirror signals when the mirror receives a notification.
type chanMirror struct{ got chan string }

func (m *chanMirror) Send(text string) { m.got <- text }

func TestHandle_MirrorInvoked(t *testing.T) {
	stub := &stubForwarder{result: forward.Result{Delivered: true, Channel: "C-default"}}
	mirror := &chanMirror{got: make(chan string, 1)}
	rl := New(Config{Forwarder: stub, Mirror: mirror, Logger: testLogger()})

	doRequest(t, rl, "GET", "/")

	select {
	case text := <-mirror.got:
		if !strings.Contains(text, "GET") {
			t.Errorf("mirror should receive the formatted notification, got %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mirror was never invoked")
	}
}
