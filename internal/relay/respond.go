package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"catchpost/internal/capture"
	"catchpost/internal/forward"
)

// Response is the fixed JSON shape returned for every relayed request.
// Status is "ok" when the forward succeeded and "warning" when it did not;
// the HTTP status is 200 either way.
type Response struct {
	Status               string `json:"status"`
	Message              string `json:"message"`
	Method               string `json:"method"`
	Path                 string `json:"path"`
	SlackChannelOverride string `json:"slack_channel_override,omitempty"`
	Error                string `json:"error,omitempty"`
}

// buildResponse classifies the forward outcome into the user-visible
// contract. The three well-known Slack channel errors get named messages;
// anything else mentioning a channel gets the generic channel wording, and
// the rest fall through to a plain delivery failure.
func buildResponse(snap capture.Snapshot, res forward.Result) Response {
	resp := Response{Method: snap.Method, Path: snap.Path}

	if res.Delivered {
		resp.Status = "ok"
		resp.Message = "Request processed successfully"
		if snap.ChannelOverride != "" {
			resp.SlackChannelOverride = snap.ChannelOverride
			resp.Message += fmt.Sprintf(" (notification sent to custom channel %q)", snap.ChannelOverride)
		}
		return resp
	}

	resp.Status = "warning"
	resp.Error = res.Err
	switch {
	case strings.Contains(res.Err, "channel_not_found") || strings.Contains(res.Err, "missing_channel"):
		resp.Message = fmt.Sprintf("Slack channel %q was not found; notification not delivered", res.Channel)
	case strings.Contains(res.Err, "not_in_channel"):
		resp.Message = fmt.Sprintf("the bot is not a member of Slack channel %q; notification not delivered", res.Channel)
	case strings.Contains(res.Err, "is_archived"):
		resp.Message = fmt.Sprintf("Slack channel %q is archived; notification not delivered", res.Channel)
	case strings.Contains(res.Err, "channel"):
		resp.Message = fmt.Sprintf("Slack channel error for %q: %s", res.Channel, res.Err)
	default:
		resp.Message = "Request processed, but forwarding to Slack failed"
		if snap.ChannelOverride != "" {
			resp.Message += fmt.Sprintf(" (custom channel %q was attempted)", snap.ChannelOverride)
		}
	}
	return resp
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	json.NewEncoder(rw).Encode(v)
}
