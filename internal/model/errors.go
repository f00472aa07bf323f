package model

import "errors"

// ErrorKind classifies recoverable application errors so callers can branch
// on kind instead of matching message strings.
type ErrorKind string

const (
	// KindValidation marks rejected form input; nothing was written.
	KindValidation ErrorKind = "validation"
	// KindAICall marks a failed model call or unparseable model response.
	KindAICall ErrorKind = "ai_call"
	// KindStore marks a persistence failure; the enclosing transaction was
	// rolled back.
	KindStore ErrorKind = "store"
)

// AppError wraps an error with its kind and a message safe to show users.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewValidationError reports rejected input with a user-facing message.
func NewValidationError(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

// NewAICallError wraps a failed model call or an unparseable model response.
func NewAICallError(msg string, err error) *AppError {
	return &AppError{Kind: KindAICall, Message: msg, Err: err}
}

// NewStoreError wraps a persistence failure.
func NewStoreError(msg string, err error) *AppError {
	return &AppError{Kind: KindStore, Message: msg, Err: err}
}

// KindOf returns the error kind, or empty string for untyped errors.
func KindOf(err error) ErrorKind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
