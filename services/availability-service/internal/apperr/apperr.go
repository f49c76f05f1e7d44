// Package apperr is the error taxonomy shared by the availability engine and its callers.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kinds. Match with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrNoticeViolation   = errors.New("minimum notice not met")
	ErrSlotConflict      = errors.New("slot conflicts with existing booking")
	ErrStorage           = errors.New("storage failure")
	ErrInvalidTimezone   = errors.New("invalid timezone")
	ErrInvalidTimeFormat = errors.New("invalid time format")
)

// Error is a classified failure. Kind is one of the sentinels above.
type Error struct {
	Kind    error
	Field   string
	Message string
	// Notice is set for ErrNoticeViolation.
	Notice time.Duration
	// ConflictID is the booking that caused an ErrSlotConflict, when known.
	ConflictID string
	// Retryable marks transient storage failures such as timeouts.
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Is lets malformed time strings also count as validation errors.
func (e *Error) Is(target error) bool {
	return target == ErrValidation && e.Kind == ErrInvalidTimeFormat
}

func Validation(field, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what, id string) error {
	return &Error{Kind: ErrNotFound, Field: what, Message: fmt.Sprintf("%s %q not found", what, id)}
}

func InvalidTimezone(name string) error {
	return &Error{Kind: ErrInvalidTimezone, Field: "timezone", Message: fmt.Sprintf("unknown timezone %q", name)}
}

func InvalidTimeFormat(value string) error {
	return &Error{Kind: ErrInvalidTimeFormat, Message: fmt.Sprintf("%q is not HH:MM", value)}
}

func NoticeViolation(required time.Duration) error {
	return &Error{
		Kind:    ErrNoticeViolation,
		Message: fmt.Sprintf("minimum %d minutes notice required", int(required/time.Minute)),
		Notice:  required,
	}
}

func SlotConflict(bookingID string) error {
	return &Error{
		Kind:       ErrSlotConflict,
		Message:    "slot conflicts with existing booking (including buffers)",
		ConflictID: bookingID,
	}
}

// Storage wraps a collaborator failure. Deadlines and cancellations are retryable.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{
		Kind:      ErrStorage,
		Message:   op,
		Retryable: errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled),
		Err:       err,
	}
}

// Label is a short, stable name for the error's kind.
func Label(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTimezone):
		return "invalid_timezone"
	case errors.Is(err, ErrInvalidTimeFormat):
		return "invalid_time_format"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoticeViolation):
		return "notice_violation"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrStorage):
		return "storage_failure"
	default:
		return "internal"
	}
}

// IsRetryable reports whether the whole operation may be retried as is.
func IsRetryable(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Retryable
}

// NoticeOf returns the required notice carried by a notice violation.
func NoticeOf(err error) (time.Duration, bool) {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == ErrNoticeViolation {
		return ae.Notice, true
	}
	return 0, false
}

// FieldOf returns the input field a validation error refers to, if any.
func FieldOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Field
	}
	return ""
}
