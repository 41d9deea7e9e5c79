package alert

import "time"

// Severity is the only severity this gateway accepts.
const Severity = "CRITICAL"

// Alert is the canonical input model for a validated incoming alert.
// Fields keep their original casing for rendering; key derivation folds
// them separately (see keys.go). Built once per request, read-only after.
type Alert struct {
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	ErrorCode   string            `json:"error_code"`
	Summary     string            `json:"summary"`
	Details     string            `json:"details"`
	Resource    string            `json:"resource"`
	OccurredAt  time.Time         `json:"occurred_at"`
	RunbookURL  string            `json:"runbook_url,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}
