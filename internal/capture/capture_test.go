package capture

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFromRequest_Basics(t *testing.T) {
	req := httptest.NewRequest("POST", "/hooks/github", strings.NewReader("payload"))
	req.Header.Set("X-Event", "push")

	snap := FromRequest(req)
	if snap.Method != "POST" {
		t.Errorf("expected POST, got %s", snap.Method)
	}
	if snap.Path != "/hooks/github" {
		t.Errorf("expected /hooks/github, got %s", snap.Path)
	}
	if snap.Body != "payload" {
		t.Errorf("expected payload, got %q", snap.Body)
	}
	if snap.Headers["X-Event"] != "push" {
		t.Errorf("expected push header, got %q", snap.Headers["X-Event"])
	}
}

func TestFromRequest_EmptyBody(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	snap := FromRequest(req)
	if snap.Body != EmptyBodyMarker {
		t.Errorf("expected %q, got %q", EmptyBodyMarker, snap.Body)
	}
}

func TestFromRequest_BinaryBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/upload", bytes.NewReader([]byte{0xff, 0xfe, 0x00, 0x80}))
	snap := FromRequest(req)
	if snap.Body != BinaryDataMarker {
		t.Errorf("expected %q, got %q", BinaryDataMarker, snap.Body)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("broken stream") }

func TestFromRequest_ReadError(t *testing.T) {
	req := httptest.NewRequest("POST", "/", failingReader{})
	snap := FromRequest(req)
	if snap.Body != UnreadableBodyMarker {
		t.Errorf("expected %q, got %q", UnreadableBodyMarker, snap.Body)
	}
}

func TestFromRequest_ChannelOverride(t *testing.T) {
	req := httptest.NewRequest("GET", "/alerts?channel_id=C12345", nil)
	snap := FromRequest(req)
	if snap.ChannelOverride != "C12345" {
		t.Errorf("expected C12345, got %q", snap.ChannelOverride)
	}
	if snap.Path != "/alerts" {
		t.Errorf("query must not leak into path, got %q", snap.Path)
	}
}

func TestFromRequest_NoChannelOverride(t *testing.T) {
	req := httptest.NewRequest("GET", "/alerts", nil)
	if snap := FromRequest(req); snap.ChannelOverride != "" {
		t.Errorf("expected empty override, got %q", snap.ChannelOverride)
	}
}

func TestFromRequest_LongBodyTruncated(t *testing.T) {
	long := strings.Repeat("a", 40000)
	req := httptest.NewRequest("POST", "/", strings.NewReader(long))
	snap := FromRequest(req)

	if !strings.HasSuffix(snap.Body, TruncationMarker) {
		t.Fatal("expected truncation marker suffix")
	}
	kept := strings.TrimSuffix(snap.Body, TruncationMarker)
	if len(kept) != 35000 {
		t.Errorf("expected 35000 kept characters, got %d", len(kept))
	}
}

func TestTruncate_Short(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("short input must pass through, got %q", got)
	}
}

func TestTruncate_Multibyte(t *testing.T) {
	got := Truncate(strings.Repeat("é", 10), 5)
	want := strings.Repeat("é", 5) + TruncationMarker
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFromRequest_MultiValueHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Add("Accept", "text/html")
	req.Header.Add("Accept", "application/json")

	snap := FromRequest(req)
	if snap.Headers["Accept"] != "text/html, application/json" {
		t.Errorf("expected joined header values, got %q", snap.Headers["Accept"])
	}
}
