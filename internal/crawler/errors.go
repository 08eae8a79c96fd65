package crawler

import (
	"fmt"
	"strings"
)

// FetchError reports a transport failure or a non-2xx response for a page.
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MalformedFieldError reports a text fragment that could not be coerced to its typed value.
type MalformedFieldError struct {
	Field string
	Raw   string
	Err   error
}

func (e *MalformedFieldError) Error() string {
	msg := fmt.Sprintf("malformed %s %q", e.Field, e.Raw)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedFieldError) Unwrap() error { return e.Err }

// ExtractionError reports a page whose layout did not yield a complete set of offers.
// Offer is the zero based index of the failing offer, or -1 when no offer was reached.
type ExtractionError struct {
	Strategy string
	Offer    int
	Field    string
	Reason   string
	Err      error
}

func (e *ExtractionError) Error() string {
	var sb strings.Builder
	sb.WriteString("extract")
	if e.Strategy != "" {
		sb.WriteString(" [" + e.Strategy + "]")
	}
	if e.Offer >= 0 {
		fmt.Fprintf(&sb, " offer %d", e.Offer)
	}
	if e.Field != "" {
		sb.WriteString(" " + e.Field)
	}
	if e.Reason != "" {
		sb.WriteString(": " + e.Reason)
	}
	if e.Err != nil {
		sb.WriteString(": " + e.Err.Error())
	}
	return sb.String()
}

func (e *ExtractionError) Unwrap() error { return e.Err }
