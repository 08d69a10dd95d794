// Package forward delivers formatted notifications to the Slack Web API
// and reports the outcome of each attempt. Delivery is at-most-once: a
// failed forward is reported, never retried.
package forward

import (
	"context"
	"log/slog"
	"time"

	"github.com/slack-go/slack"
)

// Result is the outcome of one delivery attempt.
type Result struct {
	Delivered bool
	Channel   string // resolved destination channel
	Err       string // Slack error code or stringified transport error
}

// Forwarder delivers a notification, resolving the destination channel
// from the override when one is supplied.
type Forwarder interface {
	Forward(ctx context.Context, text, channelOverride string) Result
}

// Slack implements Forwarder against chat.postMessage.
type Slack struct {
	api            *slack.Client
	defaultChannel string
	logger         *slog.Logger
}

// SlackConfig configures the Slack forwarding client.
type SlackConfig struct {
	BotToken       string
	DefaultChannel string
	APIURL         string // optional base URL override, must end with "/"
	Logger         *slog.Logger
}

// NewSlack creates a Slack forwarding client.
func NewSlack(cfg SlackConfig) *Slack {
	opts := []slack.Option{
		slack.OptionHTTPClient(sharedHTTPClient(30 * time.Second)),
	}
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(cfg.APIURL))
	}
	return &Slack{
		api:            slack.New(cfg.BotToken, opts...),
		defaultChannel: cfg.DefaultChannel,
		logger:         cfg.Logger,
	}
}

// Forward makes exactly one chat.postMessage attempt. The override wins
// over the configured default channel when non-empty; the override is
// untrusted free text and is passed through as-is. Transport failures and
// remote rejections (ok:false) both come back as a failed Result carrying
// the error string.
func (s *Slack) Forward(ctx context.Context, text, channelOverride string) Result {
	channel := s.defaultChannel
	if channelOverride != "" {
		channel = channelOverride
	}

	_, _, err := s.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		s.logger.Warn("slack forward failed", "channel", channel, "err", err)
		return Result{Channel: channel, Err: err.Error()}
	}

	s.logger.Debug("slack forward delivered", "channel", channel, "chars", len(text))
	return Result{Delivered: true, Channel: channel}
}

// CheckAuth verifies the configured bot token with auth.test and returns
// the bot's user name.
func (s *Slack) CheckAuth(ctx context.Context) (string, error) {
	resp, err := s.api.AuthTestContext(ctx)
	if err != nil {
		return "", err
	}
	return resp.User, nil
}
