package errors

import (
	"fmt"
	"time"
)

// UnrecognizedFormat is returned when no known transcript format matched
// enough of the sampled lines.
func UnrecognizedFormat(sampled, bestMatched int) *Error {
	return New(ErrCodeUnrecognizedFormat, "could not parse file: transcript format not recognized").
		WithDetail("sampled", sampled).
		WithDetail("matched", bestMatched)
}

// MalformedLine records a line whose timestamp failed to parse under the
// committed format.
func MalformedLine(line int, text string, cause error) *Error {
	return Wrap(cause, ErrCodeMalformedLine, fmt.Sprintf("line %d: invalid timestamp", line)).
		WithDetail("line", line).
		WithDetail("text", text)
}

// BackgroundFailure reports that background work for op panicked, errored or
// could not be reached.
func BackgroundFailure(op string, cause error) *Error {
	return Wrap(cause, ErrCodeBackgroundFailure, fmt.Sprintf("background %s failed", op)).
		WithDetail("op", op)
}

// StaleResult marks a result superseded by a newer request.
func StaleResult(op string, token uint64) *Error {
	return New(ErrCodeStaleResult, fmt.Sprintf("%s request %d superseded", op, token)).
		WithDetail("op", op).
		WithDetail("token", token)
}

func Timeout(op string, d time.Duration) *Error {
	return New(ErrCodeTimeout, fmt.Sprintf("%s did not finish within %s", op, d)).
		WithDetail("op", op).
		WithDetail("timeout", d.String())
}

func ConfigInvalid(reason string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

func NotFound(what string) *Error {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", what)).
		WithDetail("what", what)
}

func InvalidInput(reason string) *Error {
	return New(ErrCodeInvalidInput, reason)
}
