package fetcher

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLocationMissing   = errors.New("redirect location missing")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

// ConfigurationError reports missing or malformed input. No network or
// filesystem work has happened when it is returned.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// RedirectError reports a redirect that could not be followed. Chain holds
// every URL requested so far, starting with the original one.
type RedirectError struct {
	URL   string
	Chain []string
	Err   error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect from %s failed after %d hop(s): %v", e.URL, len(e.Chain)-1, e.Err)
}

func (e *RedirectError) Unwrap() error { return e.Err }

type HTTPStatusError struct {
	URL        string
	StatusCode int
	StatusText string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("server returned status %d %s for %s", e.StatusCode, e.StatusText, e.URL)
}

// TransportError wraps connection, streaming and local IO failures.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func statusText(code int, status string) string {
	// net/http formats Status as "404 Not Found"
	text := strings.TrimSpace(strings.TrimPrefix(status, fmt.Sprint(code)))
	if text == "" {
		return "Unknown"
	}
	return text
}
