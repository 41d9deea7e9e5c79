// Package config loads and validates the gateway configuration from an
// optional YAML file overlaid by CAS_* environment variables. The resulting
// Settings value is treated as immutable; only the auth credential set is
// hot-swapped on file changes.
package config

import "time"

// Settings is the top-level configuration.
type Settings struct {
	Port            int    `yaml:"port" env:"PORT" env-default:"8080"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes" env:"CAS_MAX_BODY_BYTES" env-default:"16384"`
	RequestIDHeader string `yaml:"request_id_header" env:"CAS_REQUEST_ID_HEADER" env-default:"X-Request-Id"`

	Auth    AuthConf    `yaml:"auth"`
	Policy  PolicyConf  `yaml:"policy"`
	Mailmux MailmuxConf `yaml:"mailmux"`
}

// AuthConf configures the credential verifier.
type AuthConf struct {
	Mode             string   `yaml:"mode" env:"CAS_AUTH_MODE"`
	BearerTokens     []string `yaml:"bearer_tokens" env:"CAS_AUTH_BEARER_TOKENS"`
	SecretHeaderName string   `yaml:"secret_header_name" env:"CAS_AUTH_SECRET_HEADER_NAME" env-default:"X-Alert-Secret"`
	SharedSecret     string   `yaml:"shared_secret" env:"CAS_AUTH_SHARED_SECRET"`
}

// PolicyConf configures the dedupe and rate-limit stores.
type PolicyConf struct {
	DedupeWindowSeconds    int `yaml:"dedupe_window_seconds" env:"CAS_DEDUPE_WINDOW_SECONDS" env-default:"120"`
	RateLimitMax           int `yaml:"rate_limit_max" env:"CAS_RATE_LIMIT_MAX" env-default:"30"`
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds" env:"CAS_RATE_LIMIT_WINDOW_SECONDS" env-default:"60"`
	StoreMaxKeys           int `yaml:"store_max_keys" env:"CAS_POLICY_STORE_MAX_KEYS" env-default:"10000"`
}

// DedupeWindow returns the dedupe window as a duration.
func (p PolicyConf) DedupeWindow() time.Duration {
	return time.Duration(p.DedupeWindowSeconds) * time.Second
}

// RateLimitWindow returns the rate-limit window as a duration.
func (p PolicyConf) RateLimitWindow() time.Duration {
	return time.Duration(p.RateLimitWindowSeconds) * time.Second
}

// MailmuxConf configures the delivery client.
type MailmuxConf struct {
	BaseURL         string   `yaml:"base_url" env:"CAS_MAILMUX_BASE_URL"`
	SendPath        string   `yaml:"send_path" env:"CAS_MAILMUX_SEND_PATH" env-default:"/v1/send"`
	TimeoutMs       int      `yaml:"timeout_ms" env:"CAS_MAILMUX_TIMEOUT_MS" env-default:"5000"`
	AuthMode        string   `yaml:"auth_mode" env:"CAS_MAILMUX_AUTH_MODE" env-default:"none"`
	BearerToken     string   `yaml:"bearer_token" env:"CAS_MAILMUX_BEARER_TOKEN"`
	AuthHeaderName  string   `yaml:"auth_header_name" env:"CAS_MAILMUX_AUTH_HEADER_NAME"`
	AuthHeaderValue string   `yaml:"auth_header_value" env:"CAS_MAILMUX_AUTH_HEADER_VALUE"`
	To              []string `yaml:"to" env:"CAS_MAILMUX_TO"`
	From            string   `yaml:"from" env:"CAS_MAILMUX_FROM" env-default:"alertgate@localhost"`
	SubjectPrefix   string   `yaml:"subject_prefix" env:"CAS_MAILMUX_SUBJECT_PREFIX" env-default:"[CRITICAL]"`
}

// Timeout returns the outbound call timeout as a duration.
func (m MailmuxConf) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}
