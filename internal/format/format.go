// Package format renders captured requests into the notification text sent
// to Slack. The layout is fixed: title, method, path, fenced body, fenced
// headers.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Notification renders one notification in Slack mrkdwn. The headers block
// is serialized as indented JSON; a body that is itself a JSON document is
// re-indented so structured payloads stay readable inside the fence.
func Notification(body, method, path string, headers map[string]string) string {
	headerJSON, err := json.MarshalIndent(headers, "", "  ")
	if err != nil {
		headerJSON = []byte("{}")
	}
	return fmt.Sprintf("🔔 *Catchpost Request*\n• Method: `%s`\n• Path: `%s`\n• Message: ```%s```\n• Headers: ```%s```",
		method, path, prettyBody(body), headerJSON)
}

func prettyBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return body
	}
	if !json.Valid([]byte(trimmed)) {
		return body
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return body
	}
	return buf.String()
}
