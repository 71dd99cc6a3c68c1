// Package api is a typed client for the Paperless-ngx REST API. Every
// method returns either a decoded response or one of the typed errors in
// errors.go; callers never see raw HTTP details.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one Paperless-ngx server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Options configures a Client.
type Options struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// New creates a client for the given server base URL (without /api) and
// API token. The token may be empty until Login is called.
func New(baseURL, token string, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	transport := http.DefaultTransport
	if opts.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
	}
}

// SetToken replaces the API token used for subsequent requests.
func (c *Client) SetToken(token string) { c.token = token }

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Login exchanges username/password for an API token via /api/token/ and
// stores it on the client. Accounts protected by 2FA cannot log in this
// way; the returned AuthError carries TwoFactor=true in that case.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/token/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Op: "login", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serverMessage(raw)
		lower := strings.ToLower(msg)
		twoFactor := strings.Contains(lower, "mfa") || strings.Contains(lower, "otp") ||
			strings.Contains(lower, "two-factor") || strings.Contains(lower, "totp")
		if resp.StatusCode == 401 || resp.StatusCode == 403 || resp.StatusCode == 400 {
			return "", &AuthError{StatusCode: resp.StatusCode, Message: msg, TwoFactor: twoFactor}
		}
		return "", &ClientError{StatusCode: resp.StatusCode, Message: msg}
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &ParseError{Message: "token response", Err: err}
	}
	if out.Token == "" {
		return "", &ParseError{Message: "token response", Err: fmt.Errorf("empty token")}
	}
	c.token = out.Token
	return out.Token, nil
}

// get performs a GET against path (already /api-prefixed) with query params
// and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, path, out)
}

// send performs a JSON-bodied request (POST/PUT/PATCH/DELETE) and decodes
// the response into out when out is non-nil.
func (c *Client) send(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, path, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ParseError{Message: op, Err: err}
	}
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	msg := serverMessage(raw)
	switch resp.StatusCode {
	case 401, 403:
		lower := strings.ToLower(msg)
		twoFactor := strings.Contains(lower, "mfa") || strings.Contains(lower, "otp") ||
			strings.Contains(lower, "two-factor") || strings.Contains(lower, "totp")
		return &AuthError{StatusCode: resp.StatusCode, Message: msg, TwoFactor: twoFactor}
	default:
		return &ClientError{StatusCode: resp.StatusCode, Message: msg}
	}
}

// serverMessage extracts the human-readable part of an error body: DRF
// returns {"detail": "..."} for most failures, plain text otherwise.
func serverMessage(raw []byte) string {
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 500 {
		msg = msg[:500]
	}
	if msg == "" {
		msg = "(empty response body)"
	}
	return msg
}
