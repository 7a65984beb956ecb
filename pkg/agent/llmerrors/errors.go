// Package llmerrors classifies provider failures so callers can decide whether to retry.
package llmerrors

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorType is the category of an LLM failure.
type ErrorType int8

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeRateLimit
	ErrorTypeTransient
	ErrorTypeEmptyResponse
	ErrorTypeAuth
	ErrorTypeBadPrompt
	ErrorTypeServiceUnavailable
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeServiceUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

// Error is a classified LLM failure.
type Error struct {
	Err        error
	Message    string
	BodyStub   string // first bytes of the provider response, if any
	Type       ErrorType
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("LLM error (%s, status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("LLM error (%s): %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failure is worth retrying.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeTransient, ErrorTypeEmptyResponse, ErrorTypeServiceUnavailable:
		return true
	default:
		return false
	}
}

func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

func NewErrorWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{Type: errorType, StatusCode: statusCode, Message: message}
}

func NewErrorWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{Type: errorType, Err: cause, Message: message}
}

// Is reports whether err is an *Error of the given type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the classified type of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.IsRetryable()
	}
	return false
}

var statusPattern = regexp.MustCompile(`\b(4\d\d|5\d\d)\b`)

// ExtractStatusCode finds an HTTP status code in an SDK error message.
func ExtractStatusCode(msg string) int {
	m := statusPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return code
}

// Classify wraps a raw provider error. Errors already classified are returned unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return err
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	status := ExtractStatusCode(msg)

	errType := ErrorTypeUnknown
	switch {
	case status == 401 || status == 403:
		errType = ErrorTypeAuth
	case status == 429:
		errType = ErrorTypeRateLimit
	case status == 400:
		errType = ErrorTypeBadPrompt
	case status == 503:
		errType = ErrorTypeServiceUnavailable
	case status >= 500:
		errType = ErrorTypeTransient
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "too many requests"):
		errType = ErrorTypeRateLimit
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "invalid api key"), strings.Contains(lower, "authentication"):
		errType = ErrorTypeAuth
	case strings.Contains(lower, "connection refused"), strings.Contains(lower, "timeout"),
		strings.Contains(lower, "connection reset"), strings.Contains(lower, "eof"):
		errType = ErrorTypeTransient
	}

	stub := msg
	if len(stub) > 256 {
		stub = stub[:256]
	}
	return &Error{
		Type:       errType,
		StatusCode: status,
		Err:        err,
		Message:    fmt.Sprintf("%s request failed", provider),
		BodyStub:   stub,
	}
}
