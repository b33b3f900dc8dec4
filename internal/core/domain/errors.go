package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid document state")
	ErrValidation        = errors.New("file validation failed")
	ErrTransport         = errors.New("analysis transport failure")
	ErrMalformedResponse = errors.New("malformed analysis response")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// UserMessager is implemented by errors that carry text fit for display on a document.
type UserMessager interface {
	UserMessage() string
}

const genericAnalysisFailure = "analysis request failed"

// UserMessage extracts the human-readable cause shown on a failed document.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var um UserMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("%s: %v", genericAnalysisFailure, err)
}

// MalformedResponseError reports a 2xx body that lacks the expected data envelope.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "invalid API response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error {
	return ErrMalformedResponse
}

func (e *MalformedResponseError) UserMessage() string {
	return "Invalid API response: " + e.Reason
}
