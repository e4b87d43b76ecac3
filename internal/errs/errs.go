// Package errs represents the pipeline's error kinds as a sentinel+wrapper
// type rather than a hierarchy of custom types, so callers can branch on
// errors.Is without the pipeline ever needing a general rules engine for
// error handling.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the pipeline must react to it.
type Kind string

const (
	UpstreamTimeout     Kind = "UpstreamTimeout"
	UpstreamUnavailable Kind = "UpstreamUnavailable"
	MissingData         Kind = "MissingData"
	ValidationFailure   Kind = "ValidationFailure"
	StorageFatal        Kind = "StorageFatal"
	InternalBug         Kind = "InternalBug"
)

// kindSentinel lets errors.Is match on Kind alone, ignoring the wrapped detail.
type kindSentinel struct{ kind Kind }

func (k kindSentinel) Error() string { return string(k.kind) }

// sentinels holds the comparable targets Sentinel returns for errors.Is.
var sentinels = map[Kind]error{
	UpstreamTimeout:     kindSentinel{UpstreamTimeout},
	UpstreamUnavailable: kindSentinel{UpstreamUnavailable},
	MissingData:         kindSentinel{MissingData},
	ValidationFailure:   kindSentinel{ValidationFailure},
	StorageFatal:        kindSentinel{StorageFatal},
	InternalBug:         kindSentinel{InternalBug},
}

// Sentinel returns the comparable sentinel error for a kind, for use with
// errors.Is at call sites: `errors.Is(err, errs.Sentinel(errs.StorageFatal))`.
func Sentinel(k Kind) error { return sentinels[k] }

// kindError wraps an underlying error with its Kind and is itself both
// Is-comparable (its Is method matches the kind's sentinel) and
// message-preserving.
type kindError struct {
	kind Kind
	msg  string
	err  error
}

func (e *kindError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *kindError) Unwrap() error {
	if e.err != nil {
		return e.err
	}
	return sentinels[e.kind]
}

func (e *kindError) Is(target error) bool {
	return target == sentinels[e.kind]
}

// New builds an error of the given kind with a formatted message.
func New(k Kind, format string, args ...interface{}) error {
	return &kindError{kind: k, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an existing error without discarding it.
func Wrap(k Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: k, msg: fmt.Sprintf(format, args...), err: err}
}

// Of extracts the Kind from an error built with New/Wrap, if any.
func Of(err error) (Kind, bool) {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind, true
	}
	return "", false
}
