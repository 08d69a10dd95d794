// Package relay intercepts every inbound request, forwards a summary of it
// to Slack, and shapes the JSON response returned to the original caller.
// Every request gets exactly one response, regardless of forwarding
// outcome: a failed forward degrades to a warning body, never to a raw
// error.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"catchpost/internal/capture"
	"catchpost/internal/format"
	"catchpost/internal/forward"
	"catchpost/internal/metrics"
)

// Mirror is an optional secondary sink for forwarded notifications.
type Mirror interface {
	Send(text string)
}

// Relay runs the capture -> format -> forward -> respond pipeline.
type Relay struct {
	forwarder forward.Forwarder
	mirror    Mirror
	logger    *slog.Logger
}

// Config configures a Relay.
type Config struct {
	Forwarder forward.Forwarder
	Mirror    Mirror // optional
	Logger    *slog.Logger
}

func New(cfg Config) *Relay {
	return &Relay{
		forwarder: cfg.Forwarder,
		mirror:    cfg.Mirror,
		logger:    cfg.Logger,
	}
}

// Handle processes one intercepted request end to end. It serves the
// catch-all surface: whatever route the caller hit, the response is
// produced here.
func (rl *Relay) Handle(rw http.ResponseWriter, r *http.Request) {
	metrics.RequestsTotal.Inc()
	metrics.RequestsInFlight.Inc()
	defer metrics.RequestsInFlight.Dec()

	snap := capture.FromRequest(r)
	text := format.Notification(snap.Body, snap.Method, snap.Path, snap.Headers)

	res := rl.Send(r.Context(), text, snap.ChannelOverride)

	rl.logger.Debug("request relayed",
		"method", snap.Method,
		"path", snap.Path,
		"delivered", res.Delivered,
		"channel", res.Channel,
	)

	writeJSON(rw, http.StatusOK, buildResponse(snap, res))
}

// Send delivers one notification through the forwarder, recording latency
// and outcome. A panic below the forwarder is converted to a failed Result
// so the caller still gets its one response.
func (rl *Relay) Send(ctx context.Context, text, channelOverride string) (res forward.Result) {
	defer func() {
		if r := recover(); r != nil {
			rl.logger.Error("forward panicked", "panic", r)
			res = forward.Result{Channel: channelOverride, Err: fmt.Sprint(r)}
			metrics.ForwardErrors.Inc()
		}
	}()

	start := time.Now()
	res = rl.forwarder.Forward(ctx, text, channelOverride)
	metrics.ForwardLatency.Observe(time.Since(start).Seconds())

	if res.Delivered {
		metrics.ForwardsTotal.Inc()
	} else {
		metrics.ForwardErrors.Inc()
	}

	if rl.mirror != nil {
		// Best effort, off the request path.
		go rl.mirror.Send(text)
	}
	return res
}
