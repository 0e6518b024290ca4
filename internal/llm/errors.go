package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrUnauthorized  = errors.New("llm unauthorized")
	ErrUnavailable   = errors.New("API temporarily unavailable")
	ErrRateLimited   = errors.New("llm rate limited")
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrNotConfigured = errors.New("llm not configured")
)

// Class groups failures by how the client reacts to them.
type Class int

const (
	// ClassNone is the class of a nil error.
	ClassNone Class = iota
	// ClassPermanent failures are never retried.
	ClassPermanent
	// ClassOverload failures back off slowly and stop a batch.
	ClassOverload
	// ClassConnection failures back off and trip the circuit breaker.
	ClassConnection
	// ClassTransient is everything else; retried with the shortest backoff.
	ClassTransient
)

func (c Class) String() string {
	switch c {
	case ClassPermanent:
		return "permanent"
	case ClassOverload:
		return "overload"
	case ClassConnection:
		return "connection"
	case ClassTransient:
		return "transient"
	default:
		return "none"
	}
}

var (
	permanentSignals = []string{
		"invalid_request_error",
		"invalid_request",
		"invalid request",
		"unsupported",
		"401",
		"403",
		"404",
	}
	overloadSignals = []string{
		"429",
		"engine_overloaded_error",
		"overloaded",
		"rate limit",
		"too many requests",
	}
	connectionSignals = []string{
		"connection error",
		"connection refused",
		"connection reset",
		"connecterror",
		"timeout",
		"timed out",
		"temporarily unavailable",
		"dns",
		"no such host",
		"name or service not known",
		"failed to establish a new connection",
		"max retries exceeded",
		"eof",
	}
)

// Classify maps an error from the transport to a Class. Typed HTTP status
// codes win over message text.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Class
	}
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}
	if errors.Is(err, ErrUnavailable) {
		return ClassConnection
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassConnection
	}

	if status := statusCode(err); status != 0 {
		switch {
		case status == 401 || status == 403 || status == 404 || status == 400:
			return ClassPermanent
		case status == 429:
			return ClassOverload
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassConnection
	}

	return classifyText(err.Error())
}

func classifyText(msg string) Class {
	lowered := strings.ToLower(msg)
	switch {
	case containsAny(lowered, permanentSignals):
		return ClassPermanent
	case containsAny(lowered, overloadSignals):
		return ClassOverload
	case containsAny(lowered, connectionSignals):
		return ClassConnection
	default:
		return ClassTransient
	}
}

func containsAny(s string, signals []string) bool {
	for _, sig := range signals {
		if strings.Contains(s, sig) {
			return true
		}
	}
	return false
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// CallError is returned once a call has given up.
type CallError struct {
	Class    Class
	Attempts int
	Err      error
}

func (e *CallError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("model call failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("model call failed: %v", e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Is lets callers test a CallError against the package sentinels.
func (e *CallError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Class == ClassOverload
	case ErrUnavailable:
		return e.Class == ClassConnection
	case ErrUnauthorized:
		s := statusCode(e.Err)
		return s == 401 || s == 403
	}
	return false
}

// visionUnsupportedSignals mark a model that cannot take image input.
var visionUnsupportedSignals = []string{
	"image input not supported",
	"vision",
	"unsupported",
	"input_image",
	"image_url",
	"does not support image",
}

// IsVisionUnsupported reports whether err means the model rejected image
// input, so another candidate may be tried.
func IsVisionUnsupported(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(strings.ToLower(err.Error()), visionUnsupportedSignals)
}
