package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"salon-portal/internal/model"
	"salon-portal/internal/session"
	"salon-portal/pkg/apierror"
)

const maxErrorBodySize = 64 * 1024

// Client is the single chokepoint for calls to the booking API. It attaches
// the session's bearer token to every request and applies the two global
// interceptors: a rejected credential (401) unconditionally clears the
// session, and a 403 carrying must_change_password arms the rotation flag
// unless the flag is sticky-false.
type Client struct {
	baseURL        string
	httpc          *http.Client
	sessions       session.Store
	onUnauthorized func(ctx context.Context, sid string)
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		c.httpc = httpc
	}
}

// WithOnUnauthorized installs a hook invoked after a 401 has cleared the
// session. The HTTP layer uses it to observe forced logouts; the client
// itself never navigates.
func WithOnUnauthorized(hook func(ctx context.Context, sid string)) Option {
	return func(c *Client) {
		c.onUnauthorized = hook
	}
}

func New(baseURL string, sessions session.Store, opts ...Option) *Client {
	client := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpc:    &http.Client{Timeout: 15 * time.Second},
		sessions: sessions,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// upstreamError is the booking API's error envelope. Details may be a plain
// string or a list of validation messages.
type upstreamError struct {
	Error              string          `json:"error"`
	Details            json.RawMessage `json:"details,omitempty"`
	MustChangePassword bool            `json:"must_change_password,omitempty"`
}

func (e upstreamError) detailString() string {
	if len(e.Details) == 0 {
		return ""
	}

	var single string
	if err := json.Unmarshal(e.Details, &single); err == nil {
		return single
	}

	var many []string
	if err := json.Unmarshal(e.Details, &many); err == nil {
		return strings.Join(many, "; ")
	}

	return string(e.Details)
}

func (c *Client) do(ctx context.Context, sid string, method string, path string, query url.Values, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	sess, err := c.sessions.Read(ctx, sid)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		// No response received. Surfaced as its own error kind and the
		// session is left untouched.
		return fmt.Errorf("%w: %v", model.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	var envelope upstreamError
	_ = json.Unmarshal(raw, &envelope)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Credential rejected. Unconditional for every endpoint, callers
		// cannot opt out.
		_ = c.sessions.Clear(ctx, sid)
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx, sid)
		}
		return fmt.Errorf("%w: %s", model.ErrUnauthenticated, envelope.Error)

	case resp.StatusCode == http.StatusForbidden && envelope.MustChangePassword:
		c.armRotationFlag(ctx, sid)
		return model.ErrPasswordChangeRequired

	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", model.ErrUpstreamFault, resp.StatusCode)

	default:
		return apierror.FromStatus(resp.StatusCode, envelope.Error, envelope.detailString())
	}
}

// armRotationFlag sets the must-change-password flag unless it is sticky
// false, which prevents a background request issued just before a password
// change completed from re-arming the prompt.
func (c *Client) armRotationFlag(ctx context.Context, sid string) {
	sess, err := c.sessions.Read(ctx, sid)
	if err != nil || sess.MustChangePassword == session.FlagFalse {
		return
	}
	if sess.MustChangePassword == session.FlagTrue {
		return
	}

	sess.MustChangePassword = session.FlagTrue
	_ = c.sessions.Write(ctx, sid, sess)
}
