// Package capture turns arbitrary inbound HTTP requests into read-only
// snapshots. Capture never fails: unreadable or non-text bodies are
// replaced with sentinel markers so the relay can always forward something.
package capture

import (
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	// maxBodyBytes bounds how much of the request body is read at all.
	maxBodyBytes = 1 << 20 // 1MB

	// maxBodyChars bounds the decoded text kept for forwarding; Slack
	// rejects messages far smaller than the read limit.
	maxBodyChars = 35000

	EmptyBodyMarker      = "[empty body]"
	BinaryDataMarker     = "[binary data]"
	UnreadableBodyMarker = "[could not read body]"
	TruncationMarker     = "... [truncated]"
)

// Snapshot is the captured representation of one inbound request. It is
// created per request, read-only, and discarded once the response is out.
type Snapshot struct {
	Method          string
	Path            string
	Headers         map[string]string
	Body            string
	ChannelOverride string // from the channel_id query parameter, untrusted
}

// FromRequest captures r. The body is consumed; callers that still need it
// must not rely on r.Body afterwards.
func FromRequest(r *http.Request) Snapshot {
	return Snapshot{
		Method:          r.Method,
		Path:            r.URL.Path,
		Headers:         flattenHeaders(r.Header),
		Body:            readBody(r),
		ChannelOverride: r.URL.Query().Get("channel_id"),
	}
}

func readBody(r *http.Request) string {
	if r.Body == nil {
		return EmptyBodyMarker
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return UnreadableBodyMarker
	}
	if len(body) == 0 {
		return EmptyBodyMarker
	}
	if !utf8.Valid(body) {
		return BinaryDataMarker
	}
	return Truncate(string(body), maxBodyChars)
}

// Truncate caps s at limit characters (runes, not bytes) and appends a
// truncation marker when anything was cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + TruncationMarker
}

// flattenHeaders collapses multi-valued headers into a single
// comma-joined value per canonical key.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
