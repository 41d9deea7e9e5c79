// Package mailmux renders accepted alerts into notification messages and
// delivers them to the downstream mailmux endpoint. Exactly one HTTP call is
// made per accepted alert; there is no retry path anywhere in this package.
package mailmux

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/opsmux/alertgate/internal/alert"
	"github.com/opsmux/alertgate/internal/metrics"
)

const userAgent = "alertgate/1"

// AuthMode selects how the outbound call authenticates to mailmux.
type AuthMode string

const (
	// AuthNone sends no credentials.
	AuthNone AuthMode = "none"
	// AuthToken sends a bearer token.
	AuthToken AuthMode = "token"
	// AuthHeader sends a fixed header/value pair.
	AuthHeader AuthMode = "header"
)

// Config holds the delivery tunables, fixed at construction.
type Config struct {
	BaseURL         string
	SendPath        string
	Timeout         time.Duration
	AuthMode        AuthMode
	BearerToken     string
	AuthHeaderName  string
	AuthHeaderValue string
	To              []string
	From            string
	SubjectPrefix   string
}

// Message is the JSON payload POSTed to mailmux.
type Message struct {
	To      []string          `json:"to"`
	From    string            `json:"from"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	Headers map[string]string `json:"headers,omitempty"`
}

// OutcomeKind classifies the single delivery attempt.
type OutcomeKind int

const (
	// Delivered means mailmux answered 2xx.
	Delivered OutcomeKind = iota
	// Failed means mailmux answered with a non-2xx status, or the call
	// failed before a response arrived (Status 0).
	Failed
	// TimedOut means no response arrived within the configured timeout.
	TimedOut
)

// Outcome is the classified result of the delivery attempt.
type Outcome struct {
	Kind   OutcomeKind
	Status int
}

// Client performs single-attempt deliveries to mailmux. Safe for concurrent
// use.
type Client struct {
	httpClient *http.Client
	sendURL    string
	cfg        Config
}

// NewClient validates the endpoint configuration and builds the client. The
// total-request timeout lives on the underlying http.Client, so one Deliver
// can never outlast it.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid mailmux base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("mailmux base URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("mailmux base URL must include a host")
	}
	if len(cfg.To) == 0 {
		return nil, fmt.Errorf("mailmux recipient list must not be empty")
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sendURL:    cfg.BaseURL + cfg.SendPath,
		cfg:        cfg,
	}, nil
}

// Deliver renders a and performs the one outbound call. The call is shielded
// from caller cancellation: once dispatched it has an externally visible
// effect, so a client disconnect must not abort it mid-flight.
func (c *Client) Deliver(ctx context.Context, a *alert.Alert, requestID string) (Outcome, error) {
	body, err := json.Marshal(c.BuildMessage(a, requestID))
	if err != nil {
		return Outcome{}, fmt.Errorf("encode mailmux payload: %w", err)
	}

	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, c.sendURL, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("build mailmux request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-Id", requestID)
	switch c.cfg.AuthMode {
	case AuthToken:
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	case AuthHeader:
		req.Header.Set(c.cfg.AuthHeaderName, c.cfg.AuthHeaderValue)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamRequestDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		if isTimeout(err) {
			metrics.UpstreamResponses.WithLabelValues("timeout").Inc()
			return Outcome{Kind: TimedOut}, nil
		}
		metrics.UpstreamResponses.WithLabelValues("error").Inc()
		return Outcome{Kind: Failed}, nil
	}
	defer resp.Body.Close()
	// The response body is never parsed; drain it so the connection can be
	// reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		metrics.UpstreamResponses.WithLabelValues("2xx").Inc()
		return Outcome{Kind: Delivered, Status: resp.StatusCode}, nil
	}
	metrics.UpstreamResponses.WithLabelValues("non_2xx").Inc()
	return Outcome{Kind: Failed, Status: resp.StatusCode}, nil
}

func isTimeout(err error) bool {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
