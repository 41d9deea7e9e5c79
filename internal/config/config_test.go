package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Port:            8080,
		MaxBodyBytes:    16384,
		RequestIDHeader: "X-Request-Id",
		Auth: AuthConf{
			Mode:             "token",
			BearerTokens:     []string{"tok-0123456789"},
			SecretHeaderName: "X-Alert-Secret",
		},
		Policy: PolicyConf{
			DedupeWindowSeconds:    120,
			RateLimitMax:           30,
			RateLimitWindowSeconds: 60,
			StoreMaxKeys:           10000,
		},
		Mailmux: MailmuxConf{
			BaseURL:       "http://mailmux.internal:9100",
			SendPath:      "/v1/send",
			TimeoutMs:     5000,
			AuthMode:      "none",
			To:            []string{"oncall@example.com"},
			From:          "alertgate@example.com",
			SubjectPrefix: "[CRITICAL]",
		},
	}
}

func TestValidateAcceptsGoodSettings(t *testing.T) {
	assert.NoError(t, Validate(validSettings()))
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"port zero", func(s *Settings) { s.Port = 0 }, "port"},
		{"body bound too small", func(s *Settings) { s.MaxBodyBytes = 100 }, "max_body_bytes"},
		{"empty request id header", func(s *Settings) { s.RequestIDHeader = "  " }, "request_id_header"},
		{"missing auth mode", func(s *Settings) { s.Auth.Mode = "" }, "auth.mode is required"},
		{"bad auth mode", func(s *Settings) { s.Auth.Mode = "password" }, "auth.mode must be one of"},
		{"token mode without tokens", func(s *Settings) { s.Auth.BearerTokens = nil }, "auth.bearer_tokens"},
		{"short token", func(s *Settings) { s.Auth.BearerTokens = []string{"short"} }, "10..200"},
		{"secret mode without secret", func(s *Settings) { s.Auth.Mode = "secret" }, "auth.shared_secret"},
		{"negative dedupe window", func(s *Settings) { s.Policy.DedupeWindowSeconds = -1 }, "dedupe_window_seconds"},
		{"zero rate window", func(s *Settings) { s.Policy.RateLimitWindowSeconds = 0 }, "rate_limit_window_seconds"},
		{"tiny store", func(s *Settings) { s.Policy.StoreMaxKeys = 10 }, "store_max_keys"},
		{"missing base url", func(s *Settings) { s.Mailmux.BaseURL = "" }, "mailmux.base_url is required"},
		{"relative base url", func(s *Settings) { s.Mailmux.BaseURL = "mailmux:9100" }, "absolute http/https"},
		{"padded base url", func(s *Settings) { s.Mailmux.BaseURL = " http://m " }, "whitespace"},
		{"bad send path", func(s *Settings) { s.Mailmux.SendPath = "v1/send" }, "send_path"},
		{"timeout too small", func(s *Settings) { s.Mailmux.TimeoutMs = 50 }, "timeout_ms"},
		{"bad mailmux auth mode", func(s *Settings) { s.Mailmux.AuthMode = "basic" }, "auth_mode"},
		{"token auth without token", func(s *Settings) { s.Mailmux.AuthMode = "token" }, "bearer_token"},
		{"header auth without pair", func(s *Settings) { s.Mailmux.AuthMode = "header" }, "auth_header_name"},
		{"no recipients", func(s *Settings) { s.Mailmux.To = nil }, "at least one email"},
		{"bad recipient", func(s *Settings) { s.Mailmux.To = []string{"not-an-email"} }, "valid email"},
		{"empty from", func(s *Settings) { s.Mailmux.From = " " }, "mailmux.from"},
		{"empty prefix", func(s *Settings) { s.Mailmux.SubjectPrefix = "" }, "subject_prefix"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSettings()
			tc.mutate(s)
			err := Validate(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	s := validSettings()
	s.Port = 0
	s.Auth.Mode = ""
	s.Mailmux.BaseURL = ""

	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "auth.mode")
	assert.Contains(t, err.Error(), "mailmux.base_url")
}

func TestLoaderEnvOnly(t *testing.T) {
	t.Setenv("CAS_AUTH_MODE", "token")
	t.Setenv("CAS_AUTH_BEARER_TOKENS", "tok-0123456789,tok-9876543210")
	t.Setenv("CAS_MAILMUX_BASE_URL", "http://mailmux.internal:9100")
	t.Setenv("CAS_MAILMUX_TO", "oncall@example.com")
	t.Setenv("CAS_DEDUPE_WINDOW_SECONDS", "300")

	l, err := NewLoader("")
	require.NoError(t, err)
	cfg := l.Settings()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"tok-0123456789", "tok-9876543210"}, cfg.Auth.BearerTokens)
	assert.Equal(t, 300, cfg.Policy.DedupeWindowSeconds)
	assert.Equal(t, 5*time.Minute, cfg.Policy.DedupeWindow())
	assert.Equal(t, "X-Alert-Secret", cfg.Auth.SecretHeaderName)
	assert.Equal(t, "/v1/send", cfg.Mailmux.SendPath)
	assert.Equal(t, 5*time.Second, cfg.Mailmux.Timeout())
}

func TestLoaderFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alertgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
auth:
  mode: token
  bearer_tokens:
    - tok-0123456789
mailmux:
  base_url: http://mailmux.internal:9100
  to:
    - oncall@example.com
`), 0o600))

	t.Setenv("PORT", "7070")

	l, err := NewLoader(path)
	require.NoError(t, err)
	cfg := l.Settings()

	// The environment wins over the file; file values win over defaults.
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "token", cfg.Auth.Mode)
	assert.Equal(t, []string{"tok-0123456789"}, cfg.Auth.BearerTokens)
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader("/nonexistent/alertgate.yaml")
	assert.Error(t, err)
}

func TestReloadNotifiesCallbacks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alertgate.yaml")
	write := func(token string) {
		data := []byte(`
auth:
  mode: token
  bearer_tokens:
    - ` + token + `
mailmux:
  base_url: http://mailmux.internal:9100
  to:
    - oncall@example.com
`)
		require.NoError(t, os.WriteFile(path, data, 0o600))
	}
	write("tok-0123456789")

	l, err := NewLoader(path)
	require.NoError(t, err)

	var gotTokens []string
	l.OnChange(func(cfg *Settings) { gotTokens = cfg.Auth.BearerTokens })

	write("tok-rotated-9999")
	_, err = l.Reload()
	require.NoError(t, err)
	assert.Equal(t, []string{"tok-rotated-9999"}, gotTokens)
}

func TestReloadRejectsInvalidSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alertgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  mode: token
  bearer_tokens:
    - tok-0123456789
mailmux:
  base_url: http://mailmux.internal:9100
  to:
    - oncall@example.com
`), 0o600))

	l, err := NewLoader(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("auth:\n  mode: bogus\n"), 0o600))
	_, err = l.Reload()
	assert.Error(t, err)

	// The previous settings stay in effect.
	assert.Equal(t, "token", l.Settings().Auth.Mode)
}
