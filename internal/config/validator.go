package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks every tunable against its documented range and returns all
// problems in one error, so a bad deployment surfaces completely on the
// first failed start.
func Validate(cfg *Settings) error {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		fail("port must be between 1 and 65535")
	}
	if cfg.MaxBodyBytes < 1024 || cfg.MaxBodyBytes > 1048576 {
		fail("max_body_bytes must be between 1024 and 1048576")
	}
	if strings.TrimSpace(cfg.RequestIDHeader) == "" {
		fail("request_id_header must be a non-empty header name")
	}

	validateAuth(cfg.Auth, fail)
	validatePolicy(cfg.Policy, fail)
	validateMailmux(cfg.Mailmux, fail)

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateAuth(a AuthConf, fail func(string, ...any)) {
	switch a.Mode {
	case "token", "secret", "either", "both":
	case "":
		fail("auth.mode is required")
		return
	default:
		fail("auth.mode must be one of token|secret|either|both")
		return
	}

	if a.Mode == "token" || a.Mode == "either" || a.Mode == "both" {
		if len(a.BearerTokens) == 0 {
			fail("auth.bearer_tokens is required for mode %s", a.Mode)
		}
		for _, tok := range a.BearerTokens {
			if len(tok) < 10 || len(tok) > 200 {
				fail("auth.bearer_tokens entries must be 10..200 chars")
				break
			}
		}
	}
	if strings.TrimSpace(a.SecretHeaderName) == "" {
		fail("auth.secret_header_name must be a non-empty header name")
	}
	if a.Mode == "secret" || a.Mode == "either" || a.Mode == "both" {
		if a.SharedSecret == "" {
			fail("auth.shared_secret is required for mode %s", a.Mode)
		} else if len(a.SharedSecret) < 10 || len(a.SharedSecret) > 200 {
			fail("auth.shared_secret must be 10..200 chars")
		}
	}
}

func validatePolicy(p PolicyConf, fail func(string, ...any)) {
	if p.DedupeWindowSeconds < 0 || p.DedupeWindowSeconds > 86400 {
		fail("policy.dedupe_window_seconds must be between 0 and 86400")
	}
	if p.RateLimitMax < 0 || p.RateLimitMax > 100000 {
		fail("policy.rate_limit_max must be between 0 and 100000")
	}
	if p.RateLimitWindowSeconds < 1 || p.RateLimitWindowSeconds > 86400 {
		fail("policy.rate_limit_window_seconds must be between 1 and 86400")
	}
	if p.StoreMaxKeys < 100 || p.StoreMaxKeys > 1000000 {
		fail("policy.store_max_keys must be between 100 and 1000000")
	}
}

func validateMailmux(m MailmuxConf, fail func(string, ...any)) {
	if m.BaseURL == "" {
		fail("mailmux.base_url is required")
	} else if m.BaseURL != strings.TrimSpace(m.BaseURL) {
		fail("mailmux.base_url must not contain leading/trailing whitespace")
	} else if u, err := url.Parse(m.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fail("mailmux.base_url must be an absolute http/https URL")
	}
	if !strings.HasPrefix(m.SendPath, "/") {
		fail("mailmux.send_path must start with '/'")
	}
	if m.TimeoutMs < 100 || m.TimeoutMs > 60000 {
		fail("mailmux.timeout_ms must be between 100 and 60000")
	}

	switch m.AuthMode {
	case "none":
	case "token":
		if m.BearerToken == "" {
			fail("mailmux.bearer_token is required for token auth")
		} else if len(m.BearerToken) < 10 || len(m.BearerToken) > 500 {
			fail("mailmux.bearer_token must be 10..500 chars")
		}
	case "header":
		if strings.TrimSpace(m.AuthHeaderName) == "" || m.AuthHeaderValue == "" {
			fail("mailmux.auth_header_name and mailmux.auth_header_value are required for header auth")
		}
	default:
		fail("mailmux.auth_mode must be one of none|token|header")
	}

	if len(m.To) == 0 {
		fail("mailmux.to must contain at least one email")
	}
	for _, addr := range m.To {
		if !strings.Contains(addr, "@") || len(addr) < 3 || len(addr) > 320 {
			fail("mailmux.to must contain valid email addresses")
			break
		}
	}
	if strings.TrimSpace(m.From) == "" {
		fail("mailmux.from must be non-empty")
	}
	if strings.TrimSpace(m.SubjectPrefix) == "" {
		fail("mailmux.subject_prefix must be non-empty")
	}
}
