package scrape

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultMaxURLLength bounds accepted URLs.
const DefaultMaxURLLength = 2048

// Validation messages returned to clients.
const (
	MsgURLRequired     = "URL is required"
	MsgInvalidURL      = "Invalid URL format"
	MsgSchemeNotHTTP   = "Only HTTP and HTTPS URLs are allowed"
	MsgURLTooLong      = "URL is too long"
	MsgLocalNotAllowed = "Local URLs are not allowed"
)

// ErrInvalidURL is the base error for every request validation failure.
var ErrInvalidURL = errors.New("invalid scrape request")

// ValidationError describes why a request was rejected and which field caused it.
type ValidationError struct {
	Field   string `json:"param"`
	Message string `json:"msg"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets callers match any validation failure with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidURL
}

var blockedHostPrefixes = []string{"192.168.", "10.", "172."}

// ValidateURL applies the URL admission rules in order and returns the first
// failure, or nil when raw is acceptable. A non-positive maxLen uses
// DefaultMaxURLLength.
//
// Surrounding whitespace is ignored when parsing. Length is counted in
// characters of the raw input. Host filtering is a literal string check on
// the hostname and does not resolve DNS or re-check redirects.
func ValidateURL(raw string, maxLen int) *ValidationError {
	if maxLen <= 0 {
		maxLen = DefaultMaxURLLength
	}
	if strings.TrimSpace(raw) == "" {
		return urlError(MsgURLRequired)
	}
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" {
		return urlError(MsgInvalidURL)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return urlError(MsgSchemeNotHTTP)
	}
	if parsed.Host == "" || !validPort(parsed.Port()) {
		return urlError(MsgInvalidURL)
	}
	if utf8.RuneCountInString(raw) > maxLen {
		return urlError(MsgURLTooLong)
	}
	if isLocalHost(parsed.Hostname()) {
		return urlError(MsgLocalNotAllowed)
	}
	return nil
}

func validPort(port string) bool {
	if port == "" {
		return true
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}

func isLocalHost(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || host == "127.0.0.1" {
		return true
	}
	for _, prefix := range blockedHostPrefixes {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	return false
}

func urlError(msg string) *ValidationError {
	return &ValidationError{Field: "url", Message: msg}
}
