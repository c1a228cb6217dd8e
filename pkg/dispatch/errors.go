package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Static errors that can be wrapped with context.
var (
	ErrConfigRequired      = errors.New("config is required")
	ErrEndpointRequired    = errors.New("endpoint is required")
	ErrRegistryRequired    = errors.New("registry is required")
	ErrTransportRequired   = errors.New("transport is required")
	ErrNoResult            = errors.New("no result")
	ErrRequestFailed       = errors.New("request failed")
	ErrWrapPolicyBatch     = errors.New("batch execution requires the throwing error policy")
	ErrDuplicateMethodName = errors.New("duplicate method name")
	ErrDuplicateAlias      = errors.New("alias collides with an existing name")
	ErrParamBothKinds      = errors.New("parameter declared both required and optional")
	ErrEmptyMethodName     = errors.New("method name must not be empty")
)

// BindingError reports that a call could not be resolved against its method
// definition. Binding errors are surfaced synchronously at the call site,
// bypass the retry policy, and are never recorded by the wrapping error
// policy.
type BindingError struct {
	// Method is the name the caller invoked, which may be an alias.
	Method string
	Reason string
}

// Error implements the error interface.
func (e *BindingError) Error() string {
	return fmt.Sprintf("binding %q: %s", e.Method, e.Reason)
}

func bindingErrorf(method, format string, args ...interface{}) *BindingError {
	return &BindingError{Method: method, Reason: fmt.Sprintf(format, args...)}
}

// IsBindingError checks if the error is a binding error.
func IsBindingError(err error) bool {
	bindErr := &BindingError{}

	return errors.As(err, &bindErr)
}

// ProviderError is the provider's own error payload, when parseable.
type ProviderError struct {
	Code    int    `json:"code"    yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code: %d)", e.Message, e.Code)
	}

	return e.Message
}

// CallError is the structured error raised by the throwing policy and stored
// as the last-error record by the wrapping policy.
type CallError struct {
	StatusCode     int
	Classification Classification
	Message        string
	Provider       *ProviderError
	RateLimitReset time.Time
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Provider != nil {
		return fmt.Sprintf("%s: %s (status: %d)", e.Classification, e.Provider.Error(), e.StatusCode)
	}

	return fmt.Sprintf("%s: %s (status: %d)", e.Classification, e.Message, e.StatusCode)
}

// IsRateLimited checks if the error is a rate-limited call error.
func IsRateLimited(err error) bool {
	callErr := &CallError{}
	if errors.As(err, &callErr) {
		return callErr.Classification == ClassRateLimited
	}

	return false
}

// IsAuthRequired checks if the error is an authentication-required call error.
func IsAuthRequired(err error) bool {
	callErr := &CallError{}
	if errors.As(err, &callErr) {
		return callErr.Classification == ClassAuthRequired
	}

	return false
}

// IsTransient checks if the error is a transient call error.
func IsTransient(err error) bool {
	callErr := &CallError{}
	if errors.As(err, &callErr) {
		return callErr.Classification == ClassTransient
	}

	return false
}

// ClassifyStatus maps an HTTP status code to a failure classification.
func ClassifyStatus(status int) Classification {
	switch {
	case status == http.StatusUnauthorized:
		return ClassAuthRequired
	case status == http.StatusTooManyRequests || status == statusEnhanceYourCalm:
		return ClassRateLimited
	case status >= 400 && status < 500:
		return ClassPermanent
	default:
		return ClassTransient
	}
}

// statusEnhanceYourCalm is the legacy rate-limiting status some providers
// still emit in place of 429.
const statusEnhanceYourCalm = 420

// providerErrorEnvelope matches the two common provider error body shapes:
// an "errors" array of code/message pairs, or a single "error" string.
type providerErrorEnvelope struct {
	Errors []ProviderError `json:"errors"`
	Error  string          `json:"error"`
}

// ParseProviderError extracts a provider error payload from a raw response
// body. Returns nil when the body carries no recognizable error shape.
func ParseProviderError(body []byte) *ProviderError {
	if len(body) == 0 {
		return nil
	}

	var envelope providerErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}

	if len(envelope.Errors) > 0 {
		first := envelope.Errors[0]

		return &first
	}

	if envelope.Error != "" {
		return &ProviderError{Message: envelope.Error}
	}

	return nil
}

// FailureFromResponse builds a classified failure from a non-success
// transport response.
func FailureFromResponse(resp *Response) *Failure {
	failure := &Failure{
		Classification: ClassifyStatus(resp.StatusCode),
		StatusCode:     resp.StatusCode,
		Message:        http.StatusText(resp.StatusCode),
		RawBody:        resp.Body,
		Provider:       ParseProviderError(resp.Body),
	}

	if failure.Provider != nil {
		failure.Message = failure.Provider.Message
	}

	if failure.Classification == ClassRateLimited {
		failure.RateLimitReset = rateLimitReset(resp.Headers)
	}

	return failure
}

// rateLimitReset reads a reset hint from X-Rate-Limit-Reset (unix seconds)
// or Retry-After (delta seconds). Zero time when neither is present.
func rateLimitReset(headers http.Header) time.Time {
	if headers == nil {
		return time.Time{}
	}

	if v := headers.Get("X-Rate-Limit-Reset"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(secs, 0)
		}
	}

	if v := headers.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Now().Add(time.Duration(secs) * time.Second)
		}
	}

	return time.Time{}
}

// TransportFailure wraps a transport-level error (connection failure,
// timeout) as a transient failure.
func TransportFailure(err error) *Failure {
	return &Failure{
		Classification: ClassTransient,
		Message:        err.Error(),
	}
}

// callErrorFromFailure converts a terminal failure into the caller-visible
// structured error.
func callErrorFromFailure(failure *Failure) *CallError {
	return &CallError{
		StatusCode:     failure.StatusCode,
		Classification: failure.Classification,
		Message:        failure.Message,
		Provider:       failure.Provider,
		RateLimitReset: failure.RateLimitReset,
	}
}
