package mailmux

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opsmux/alertgate/internal/alert"
)

// BuildMessage renders the outbound payload for a. The rendering is
// deterministic: tags are emitted in sorted key order.
func (c *Client) BuildMessage(a *alert.Alert, requestID string) Message {
	return Message{
		To:      c.cfg.To,
		From:    c.cfg.From,
		Subject: c.buildSubject(a),
		Text:    buildText(a, requestID),
	}
}

func (c *Client) buildSubject(a *alert.Alert) string {
	return fmt.Sprintf("%s %s (%s) %s: %s",
		c.cfg.SubjectPrefix, a.Service, a.Environment, a.ErrorCode, a.Summary)
}

func buildText(a *alert.Alert, requestID string) string {
	lines := []string{
		"Severity: " + alert.Severity,
		"Service: " + a.Service,
		"Environment: " + a.Environment,
		"Error Code: " + a.ErrorCode,
		"Summary: " + a.Summary,
		"Details: " + a.Details,
		"Resource: " + a.Resource,
		"Occurred At: " + a.OccurredAt.Format(time.RFC3339),
	}

	if a.RunbookURL != "" {
		lines = append(lines, "Runbook URL: "+a.RunbookURL)
	}
	if len(a.Tags) > 0 {
		lines = append(lines, "Tags:")
		keys := make([]string, 0, len(a.Tags))
		for k := range a.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, k+"="+a.Tags[k])
		}
	}

	lines = append(lines, "Request ID: "+requestID)
	return strings.Join(lines, "\n")
}
