package forward

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newSlackAPI fakes the chat.postMessage endpoint and records the channel
// each request targeted.
func newSlackAPI(t *testing.T, response string, gotChannel *string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(rw http.ResponseWriter, r *http.Request) {
		if gotChannel != nil {
			*gotChannel = r.FormValue("channel")
		}
		rw.Header().Set("Content-Type", "application/json")
		rw.Write([]byte(response))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(apiURL string) *Slack {
	return NewSlack(SlackConfig{
		BotToken:       "xoxb-test",
		DefaultChannel: "C-default",
		APIURL:         apiURL + "/",
		Logger:         testLogger(),
	})
}

func TestForward_Delivered(t *testing.T) {
	var channel string
	srv := newSlackAPI(t, `{"ok":true,"channel":"C-default","ts":"1.0"}`, &channel)

	res := newClient(srv.URL).Forward(context.Background(), "hello", "")
	if !res.Delivered {
		t.Fatalf("expected delivery, got err %q", res.Err)
	}
	if res.Channel != "C-default" {
		t.Errorf("expected default channel, got %q", res.Channel)
	}
	if channel != "C-default" {
		t.Errorf("expected post to default channel, got %q", channel)
	}
	if res.Err != "" {
		t.Errorf("expected empty error, got %q", res.Err)
	}
}

func TestForward_ChannelOverride(t *testing.T) {
	var channel string
	srv := newSlackAPI(t, `{"ok":true,"channel":"C-custom","ts":"1.0"}`, &channel)

	res := newClient(srv.URL).Forward(context.Background(), "hello", "C-custom")
	if !res.Delivered {
		t.Fatalf("expected delivery, got err %q", res.Err)
	}
	if channel != "C-custom" {
		t.Errorf("override must win over default, posted to %q", channel)
	}
	if res.Channel != "C-custom" {
		t.Errorf("resolved channel should be the override, got %q", res.Channel)
	}
}

func TestForward_RemoteRejection(t *testing.T) {
	srv := newSlackAPI(t, `{"ok":false,"error":"channel_not_found"}`, nil)

	res := newClient(srv.URL).Forward(context.Background(), "hello", "")
	if res.Delivered {
		t.Fatal("expected failed delivery")
	}
	if !strings.Contains(res.Err, "channel_not_found") {
		t.Errorf("expected channel_not_found, got %q", res.Err)
	}
	if res.Channel != "C-default" {
		t.Errorf("failed result must still carry the resolved channel, got %q", res.Channel)
	}
}

func TestForward_TransportError(t *testing.T) {
	srv := newSlackAPI(t, `{"ok":true}`, nil)
	url := srv.URL
	srv.Close()

	res := newClient(url).Forward(context.Background(), "hello", "")
	if res.Delivered {
		t.Fatal("expected failed delivery on transport error")
	}
	if res.Err == "" {
		t.Error("expected stringified transport error")
	}
}

func TestForward_ContextCancelled(t *testing.T) {
	srv := newSlackAPI(t, `{"ok":true}`, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newClient(srv.URL).Forward(ctx, "hello", "")
	if res.Delivered {
		t.Fatal("expected failed delivery on cancelled context")
	}
}
