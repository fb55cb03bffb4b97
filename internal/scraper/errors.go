package scraper

import "fmt"

// ErrorKind classifies why a page could not be fetched.
type ErrorKind string

const (
	// KindTransport covers DNS, TLS, timeouts and body read failures.
	KindTransport ErrorKind = "transport"
	// KindStatus is any non-2xx answer other than a block.
	KindStatus ErrorKind = "status"
	// KindBlocked is an HTTP 403 from the anti-bot layer.
	KindBlocked ErrorKind = "blocked"
	// KindCooldown means an earlier block is still being honoured.
	KindCooldown ErrorKind = "cooldown"
)

// RequestError reports a failed page fetch.
type RequestError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Snippet    string
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.URL, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("[%s] %s: http %d", e.Kind, e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("[%s] %s", e.Kind, e.URL)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Blocked reports whether the site refused the request outright.
func (e *RequestError) Blocked() bool {
	return e.Kind == KindBlocked || e.Kind == KindCooldown
}
