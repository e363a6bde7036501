package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the different kinds of errors a crawl can produce
type ErrorType string

const (
	// Crawl taxonomy
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeConnection    ErrorType = "connection"
	ErrorTypeItemSkip      ErrorType = "item_skip"
	ErrorTypeDuplicate     ErrorType = "duplicate"

	// Transport detail
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error carries the type of a failure plus enough context (page number,
// item ordinal, URL) to re-run the failing step by hand.
type Error struct {
	Type    ErrorType
	Op      string
	URL     string
	Page    int
	Item    int
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(" error")
	if e.Op != "" {
		fmt.Fprintf(&b, " during %s", e.Op)
	}
	if e.Page > 0 {
		fmt.Fprintf(&b, " (page %d", e.Page)
		if e.Item > 0 {
			fmt.Fprintf(&b, ", item %d", e.Item)
		}
		b.WriteString(")")
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.URL != "" {
		fmt.Fprintf(&b, " [%s]", e.URL)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigurationError reports invalid input parameters
func NewConfigurationError(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewConnectionError reports an unreachable listing root or listing page.
// It is always fatal to the crawl.
func NewConnectionError(url string, page int, err error) *Error {
	return &Error{
		Type:    ErrorTypeConnection,
		Op:      "listing fetch",
		URL:     url,
		Page:    page,
		Message: "listing page unreachable",
		Err:     err,
	}
}

// NewItemSkipError reports a recoverable per-item failure
func NewItemSkipError(op, url string, page, item int, err error) *Error {
	msg := "item skipped"
	if err == nil {
		msg = op + " produced no result"
	}
	return &Error{
		Type:    ErrorTypeItemSkip,
		Op:      op,
		URL:     url,
		Page:    page,
		Item:    item,
		Message: msg,
		Err:     err,
	}
}

// NewDuplicateSkip is informational: the resolved image URL was already seen
func NewDuplicateSkip(url string, page, item int) *Error {
	return &Error{
		Type:    ErrorTypeDuplicate,
		Op:      "dedup",
		URL:     url,
		Page:    page,
		Item:    item,
		Message: "image already downloaded in this run",
	}
}

// NewHTTPError maps a non-success HTTP status to a typed error
func NewHTTPError(url string, status int) *Error {
	e := &Error{
		URL:     url,
		Code:    status,
		Message: fmt.Sprintf("unexpected status code: %d", status),
	}
	switch {
	case status == 429 || status == 430:
		e.Type = ErrorTypeRateLimit
		e.Message = "rate limit exceeded"
	case status == 404 || status == 410:
		e.Type = ErrorTypeNotFound
		e.Message = "resource not found"
	case status >= 500:
		e.Type = ErrorTypeServerError
		e.Message = "server error"
	default:
		e.Type = ErrorTypeUnknown
	}
	return e
}

// NewNetworkError wraps a transport-level failure
func NewNetworkError(url string, err error) *Error {
	return &Error{
		Type:    ErrorTypeNetwork,
		URL:     url,
		Message: "network error",
		Err:     err,
	}
}

// NewParsingError wraps a decode or parse failure
func NewParsingError(what string, err error) *Error {
	return &Error{
		Type:    ErrorTypeParsing,
		Message: "failed to parse " + what,
		Err:     err,
	}
}

// TypeOf returns the type of the outermost *Error in the chain, or
// ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether any *Error in the chain has the given type
func IsType(err error, t ErrorType) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Err
	}
	return false
}

// IsFatal reports whether err must abort the whole run
func IsFatal(err error) bool {
	return IsType(err, ErrorTypeConfiguration) || IsType(err, ErrorTypeConnection)
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}
