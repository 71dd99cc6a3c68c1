package api

import (
	"errors"
	"fmt"
	"strings"
)

// NetworkError wraps transport-level failures: timeouts, DNS, refused
// connections, TLS problems. The request may or may not have reached the
// server.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError is a 401/403 response. TwoFactor is set when the server
// indicates an OTP/MFA-protected account, which cannot log in with
// username/password alone.
type AuthError struct {
	StatusCode int
	Message    string
	TwoFactor  bool
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (HTTP %d): %s", e.StatusCode, e.Message)
}

// ContentError is a problem with local input: an unreadable file, an
// undecodable image, an empty page list.
type ContentError struct {
	Message string
	Err     error
}

func (e *ContentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ContentError) Unwrap() error { return e.Err }

// ClientError is any other non-2xx response, carrying the HTTP status and
// the server's message body.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("server returned HTTP %d: %s", e.StatusCode, e.Message)
}

// ParseError is a 2xx response whose body did not have the expected shape.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unexpected response: %s: %v", e.Message, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// User-facing messages by HTTP status. Substring rules below cover
// transport errors that never produced a status.
var statusMessages = map[int]string{
	401: "Wrong credentials. Check your username, password or API token.",
	403: "You don't have permission to do that on this server.",
	404: "The requested item was not found on the server.",
	413: "The document is too large for the server to accept.",
	429: "The server is rate-limiting requests. Try again in a moment.",
}

// UserMessage maps an error from this package to a short, actionable
// message safe to show in the UI. Technical detail stays out of it.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		if authErr.TwoFactor {
			return "This account uses two-factor authentication. Log in with an API token instead."
		}
		if msg, ok := statusMessages[authErr.StatusCode]; ok {
			return msg
		}
		return statusMessages[401]
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		if msg, ok := statusMessages[clientErr.StatusCode]; ok {
			return msg
		}
		if clientErr.StatusCode >= 500 {
			return "The server reported an internal error. Try again later."
		}
		return "The server rejected the request."
	}

	var contentErr *ContentError
	if errors.As(err, &contentErr) {
		return "The document could not be read. Check the selected files."
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return "The server sent an unexpected response. Check that the URL points to a Paperless-ngx server."
	}

	// Transport errors: classify by message text.
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "certificate") || strings.Contains(text, "x509") || strings.Contains(text, "tls"):
		return "The server's SSL certificate could not be verified."
	case strings.Contains(text, "timeout") || strings.Contains(text, "deadline exceeded"):
		return "The server took too long to respond. Check your connection."
	case strings.Contains(text, "no such host") || strings.Contains(text, "dns"):
		return "Server not found. Check the server URL."
	case strings.Contains(text, "connection refused") || strings.Contains(text, "network"):
		return "Could not reach the server. Check your connection."
	}
	return "Something went wrong talking to the server."
}

// TechnicalDetail returns a verbatim diagnostic string for the sync history
// log: status code, server message and wrapped error text.
func TechnicalDetail(err error) string {
	if err == nil {
		return ""
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return fmt.Sprintf("HTTP %d: %s", authErr.StatusCode, authErr.Message)
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return fmt.Sprintf("HTTP %d: %s", clientErr.StatusCode, clientErr.Message)
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return fmt.Sprintf("%s: %T: %v", netErr.Op, netErr.Err, netErr.Err)
	}
	return fmt.Sprintf("%T: %v", err, err)
}

// IsNetworkError reports whether err is a transport-level failure, which
// callers treat as "probably offline" rather than a server verdict.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsNotFound reports whether err is an HTTP 404, which delete replay treats
// as success.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.StatusCode == 404
}
