package llm

import (
	"errors"
)

// TransientError marks a failure that may clear on retry: timeouts,
// rate limits, 5xx responses.
type TransientError struct {
	err error
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// FatalError marks a failure that retrying cannot fix: bad credentials,
// malformed requests, unknown providers.
type FatalError struct {
	err error
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// IsTransient reports whether err is transient anywhere in its chain.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err is fatal anywhere in its chain.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
