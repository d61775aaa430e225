package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindConfiguration      ErrorKind = "ConfigurationError"
	KindServiceUnavailable ErrorKind = "ServiceUnavailable"
	KindAuthentication     ErrorKind = "AuthenticationFailure"
	KindAnalysis           ErrorKind = "AnalysisFailure"
	KindRateLimited        ErrorKind = "RateLimited"
	KindQuotaExceeded      ErrorKind = "QuotaExceeded"
	KindModel              ErrorKind = "ModelError"
	KindValidation         ErrorKind = "ValidationError"
)

// UserMessage is the short text shown to end users for the kind.
func (k ErrorKind) UserMessage() string {
	switch k {
	case KindConfiguration:
		return "The service is not configured for this action."
	case KindServiceUnavailable:
		return "The remote service is unavailable. Please try again later."
	case KindAuthentication:
		return "The service credentials were rejected."
	case KindAnalysis:
		return "The document could not be analyzed."
	case KindRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case KindQuotaExceeded:
		return "The service quota is exhausted."
	case KindModel:
		return "The summarization model could not produce a result."
	case KindValidation:
		return "Please enter some text."
	default:
		return "Something went wrong."
	}
}

// Error is the typed failure every pipeline stage returns.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err. Errors that carry no kind are treated as
// ServiceUnavailable.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindServiceUnavailable
}

// MessageOf returns the readable message of err, falling back to the kind's
// user message.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return KindOf(err).UserMessage()
}

// AsError returns err as *Error, wrapping foreign errors as ServiceUnavailable.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return NewError(KindServiceUnavailable, "remote call failed", err)
}
