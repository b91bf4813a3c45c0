package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure of one pipeline run.
type ErrorKind int

const (
	KindURL ErrorKind = iota + 1
	KindNetworkRequestFailed
	KindSerializationFailed
	KindParsingFailed
	KindLocationUnavailable
	KindAuthorizationDenied
)

func (k ErrorKind) String() string {
	switch k {
	case KindURL:
		return "url_error"
	case KindNetworkRequestFailed:
		return "network_request_failed"
	case KindSerializationFailed:
		return "serialization_failed"
	case KindParsingFailed:
		return "parsing_failed"
	case KindLocationUnavailable:
		return "location_unavailable"
	case KindAuthorizationDenied:
		return "authorization_denied"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message returns the fixed user-facing text for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindURL:
		return "The weather service is not working."
	case KindNetworkRequestFailed:
		return "The network appears to be down."
	case KindSerializationFailed:
		return "We're having trouble processing weather data."
	case KindParsingFailed:
		return "We're having trouble parsing weather data."
	case KindLocationUnavailable:
		return "We're having trouble getting user location."
	case KindAuthorizationDenied:
		return "Location access has been denied."
	default:
		return "Something went wrong."
	}
}

// PipelineError is a failure tagged with its ErrorKind. Err holds the cause
// and may be nil.
type PipelineError struct {
	Kind ErrorKind
	Err  error
}

// Sentinels for errors.Is; matching compares kinds only.
var (
	ErrURL                  = &PipelineError{Kind: KindURL}
	ErrNetworkRequestFailed = &PipelineError{Kind: KindNetworkRequestFailed}
	ErrSerializationFailed  = &PipelineError{Kind: KindSerializationFailed}
	ErrParsingFailed        = &PipelineError{Kind: KindParsingFailed}
	ErrLocationUnavailable  = &PipelineError{Kind: KindLocationUnavailable}
	ErrAuthorizationDenied  = &PipelineError{Kind: KindAuthorizationDenied}
)

// NewError tags err with kind.
func NewError(kind ErrorKind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Err: err}
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	return ok && t.Kind == e.Kind
}

// Classify returns the PipelineError carried by err, or wraps err with
// fallback when it carries none.
func Classify(err error, fallback ErrorKind) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return NewError(fallback, err)
}
