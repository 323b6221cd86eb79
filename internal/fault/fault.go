// Package fault defines the gateway's error taxonomy and the single mapping
// from errors to HTTP status codes.
//
// Every pipeline stage returns plain Go errors. Stages that know the cause of a
// failure wrap it in a *Error carrying a Kind and a stable Code; everything
// else is treated as an unexpected server failure.
//
// Kinds:
//   - Usage: caused by the client (bad parameters, unknown language, forbidden)
//   - Execution: the backend rejected the request text (malformed query)
//   - Failure: the server or backend failed (unavailable, overloaded, internal)
//   - Timeout: the per-request deadline expired
package fault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindFailure Kind = iota
	KindUsage
	KindExecution
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindExecution:
		return "execution"
	case KindTimeout:
		return "timeout"
	default:
		return "failure"
	}
}

// Stable error codes. They are part of the JSON error envelope.
const (
	CodeMalformed      = "malformed"
	CodeMissing        = "missing"
	CodeDuplicate      = "duplicate"
	CodeUnknownLang    = "language_not_supported"
	CodeForbidden      = "forbidden"
	CodeNotSupported   = "media_type_not_supported"
	CodeNotAcceptable  = "not_acceptable"
	CodeInvalidQuery   = "invalid_query"
	CodeOverloaded     = "overloaded"
	CodeUnavailable    = "unavailable"
	CodeCancelled      = "cancelled"
	CodeTimeout        = "timeout"
	CodeInternal       = "internal"
	CodeSerialization  = "serialization"
	CodeMethodNotAllow = "method_not_allowed"
	CodeUnauthorized   = "unauthorized"
	CodeRateLimited    = "rate_limited"
	CodeNotFound       = "not_found"
)

// Error is a classified pipeline error.
type Error struct {
	Kind   Kind
	Code   string
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func usage(status int, code, format string, args ...any) *Error {
	return &Error{Kind: KindUsage, Code: code, Status: status, Msg: fmt.Sprintf(format, args...)}
}

// BadRequest reports malformed client input.
func BadRequest(format string, args ...any) *Error {
	return usage(http.StatusBadRequest, CodeMalformed, format, args...)
}

// Missing reports a required parameter that was absent or empty.
func Missing(format string, args ...any) *Error {
	return usage(http.StatusBadRequest, CodeMissing, format, args...)
}

// Duplicate reports a single-valued parameter supplied more than once.
func Duplicate(key string) *Error {
	return usage(http.StatusBadRequest, CodeDuplicate, "duplicated parameter %q", key)
}

// LanguageNotSupported reports that no engine serves the requested language.
func LanguageNotSupported(language string) *Error {
	return usage(http.StatusNotFound, CodeUnknownLang, "language %q not supported", language)
}

// Forbidden reports an authorization failure.
func Forbidden(format string, args ...any) *Error {
	return usage(http.StatusForbidden, CodeForbidden, format, args...)
}

// NotSupported reports an unsupported or mismatched request content type.
func NotSupported(format string, args ...any) *Error {
	return usage(http.StatusUnsupportedMediaType, CodeNotSupported, format, args...)
}

// NotAcceptable reports that no acceptable response media type can be produced.
func NotAcceptable(format string, args ...any) *Error {
	return usage(http.StatusNotAcceptable, CodeNotAcceptable, format, args...)
}

// MethodNotAllowed reports an unsupported HTTP verb.
func MethodNotAllowed(method string) *Error {
	return usage(http.StatusMethodNotAllowed, CodeMethodNotAllow, "method %s not allowed", method)
}

// Unauthorized reports a bearer token that matches no configured token.
func Unauthorized(format string, args ...any) *Error {
	return usage(http.StatusUnauthorized, CodeUnauthorized, format, args...)
}

// RateLimited reports a caller exceeding its request rate.
func RateLimited() *Error {
	return usage(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
}

func NotFound(format string, args ...any) *Error {
	return usage(http.StatusNotFound, CodeNotFound, format, args...)
}

// InvalidQuery reports that the backend rejected the query text.
func InvalidQuery(err error) *Error {
	return &Error{Kind: KindExecution, Code: CodeInvalidQuery, Status: http.StatusBadRequest, Msg: "invalid query", Err: err}
}

// Unavailable reports a backend that cannot serve requests.
func Unavailable(err error) *Error {
	return &Error{Kind: KindFailure, Code: CodeUnavailable, Status: http.StatusInternalServerError, Msg: "backend unavailable", Err: err}
}

// Overloaded reports an admission-control rejection.
func Overloaded() *Error {
	return &Error{Kind: KindFailure, Code: CodeOverloaded, Status: http.StatusServiceUnavailable, Msg: "execution queue full"}
}

// Cancelled reports an execution aborted by its caller.
func Cancelled() *Error {
	return &Error{Kind: KindFailure, Code: CodeCancelled, Status: http.StatusServiceUnavailable, Msg: "execution cancelled"}
}

// Timeout reports an execution that exceeded its deadline.
func Timeout() *Error {
	return &Error{Kind: KindTimeout, Code: CodeTimeout, Status: http.StatusServiceUnavailable, Msg: "execution time limit exceeded"}
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return &Error{Kind: KindFailure, Code: CodeInternal, Status: http.StatusInternalServerError, Msg: "internal error", Err: err}
}

// Serialization reports a failure to encode a result payload.
func Serialization(err error) *Error {
	return &Error{Kind: KindFailure, Code: CodeSerialization, Status: http.StatusInternalServerError, Msg: "result serialization failed", Err: err}
}

// Classify returns the *Error carried by err, or an internal failure for
// unclassified errors. Context errors map to timeout and cancellation.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout()
	case errors.Is(err, context.Canceled):
		return Cancelled()
	}
	return Internal(err)
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return Classify(err).Status
}

// IsRegular reports whether err is an expected, client-attributable outcome
// that must not trigger server-side alerting.
func IsRegular(err error) bool {
	switch Classify(err).Kind {
	case KindUsage, KindExecution:
		return true
	}
	return false
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Code == code
}
