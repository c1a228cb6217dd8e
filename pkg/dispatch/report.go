package dispatch

// ErrorPolicy converts the terminal outcome of a logical call into the
// caller-visible result. Exactly one policy instance serves a client; the
// throwing and wrapping variants are never mixed within one instance.
type ErrorPolicy interface {
	// Failure consumes a terminal failure. The returned error, when
	// non-nil, is surfaced to the caller; a nil return means the call
	// yields the no-result sentinel instead.
	Failure(failure *Failure) error

	// Success observes a terminal success.
	Success()

	// LastError returns the most recent recorded failure, or nil. Only
	// the wrapping policy records anything.
	LastError() *CallError
}

// ThrowingPolicy converts a terminal failure into a raised structured
// error carrying the HTTP status, message, and the provider's own error
// payload when parseable. It keeps no state and is safe for concurrent use.
type ThrowingPolicy struct{}

// Failure implements ErrorPolicy.
func (ThrowingPolicy) Failure(failure *Failure) error {
	return callErrorFromFailure(failure)
}

// Success implements ErrorPolicy.
func (ThrowingPolicy) Success() {}

// LastError implements ErrorPolicy.
func (ThrowingPolicy) LastError() *CallError {
	return nil
}

// WrappingPolicy records a terminal failure into a last-error slot and lets
// the call return the no-result sentinel instead of raising.
//
// The slot is a single instance-wide record with no synchronization: any
// concurrent call overwrites it. This is a documented, retained behavior of
// the wrap-error reporting style, not a defect; the record is valid only
// between issuing a call and issuing the next one on the same client.
// Callers who need overlapping concurrent calls must use ThrowingPolicy.
type WrappingPolicy struct {
	// KeepStaleOnSuccess leaves the previous failure in place after a
	// successful call instead of clearing it.
	KeepStaleOnSuccess bool

	last *CallError
}

// Failure implements ErrorPolicy.
func (p *WrappingPolicy) Failure(failure *Failure) error {
	p.last = callErrorFromFailure(failure)

	return nil
}

// Success implements ErrorPolicy.
func (p *WrappingPolicy) Success() {
	if !p.KeepStaleOnSuccess {
		p.last = nil
	}
}

// LastError implements ErrorPolicy.
func (p *WrappingPolicy) LastError() *CallError {
	return p.last
}
