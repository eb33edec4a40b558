package ocr

import (
	"errors"
	"fmt"

	"docverify/pkg/platform/sentinel"
)

// ErrorCategory is the normalized failure taxonomy for engines.
type ErrorCategory string

const (
	// ErrorUnavailable means the engine cannot serve any request (missing
	// binary, missing trained data).
	ErrorUnavailable ErrorCategory = "unavailable"

	// ErrorTimeout means recognition did not finish before the deadline.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadInput means the image could not be handed to the engine.
	ErrorBadInput ErrorCategory = "bad_input"

	// ErrorEmptyOutput means the engine ran but recognized no text.
	ErrorEmptyOutput ErrorCategory = "empty_output"

	// ErrorInternal is anything else.
	ErrorInternal ErrorCategory = "internal"
)

// EngineError wraps engine failures with a normalized category.
type EngineError struct {
	Category   ErrorCategory
	Engine     string
	Message    string
	Underlying error
	Retryable  bool // whether another variant could succeed
}

func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("ocr %s [%s]: %s: %v", e.Engine, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("ocr %s [%s]: %s", e.Engine, e.Category, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is lets callers match unavailable engines against sentinel.ErrUnavailable.
func (e *EngineError) Is(target error) bool {
	return target == sentinel.ErrUnavailable && e.Category == ErrorUnavailable
}

// NewEngineError creates a normalized engine error.
func NewEngineError(category ErrorCategory, engine, message string, underlying error) *EngineError {
	return &EngineError{
		Category:   category,
		Engine:     engine,
		Message:    message,
		Underlying: underlying,
		Retryable:  category != ErrorUnavailable,
	}
}

// IsRetryable reports whether a different variant might succeed. Errors that
// are not EngineErrors are treated as retryable.
func IsRetryable(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Retryable
	}
	return true
}

// CategoryOf extracts the category from an error.
func CategoryOf(err error) ErrorCategory {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Category
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		return ErrorUnavailable
	}
	return ErrorInternal
}

var (
	ErrEngineNotFound     = fmt.Errorf("ocr engine %w", sentinel.ErrNotFound)
	ErrNoEnginesAvailable = fmt.Errorf("no ocr engine %w", sentinel.ErrUnavailable)
	ErrEmptyOutput        = errors.New("no text recognized")
)
