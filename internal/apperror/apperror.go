// Package apperror defines the error taxonomy shared by the booking core.
// Every failure carries a Kind (how the caller may react) and a Code (what
// happened), plus a list of human-readable messages so that several
// simultaneous validation or promo failures can be reported at once.
package apperror

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindPolicy     Kind = "policy"
	KindInternal   Kind = "internal"
)

type Code string

const (
	CodeValidation           Code = "ValidationError"
	CodeNotFound             Code = "NotFound"
	CodeSlotUnavailable      Code = "SlotUnavailable"
	CodeInsufficientCapacity Code = "InsufficientCapacity"
	CodeDeadlinePassed       Code = "DeadlinePassed"
	CodePromoInvalid         Code = "PromoInvalid"
	CodePromoExhausted       Code = "PromoExhausted"
	CodeOverRelease          Code = "OverRelease"
	CodeAlreadyCancelled     Code = "AlreadyCancelled"
	CodeAlreadyCompleted     Code = "AlreadyCompleted"
	CodeNotCancellable       Code = "NotCancellable"
	CodeStorageConflict      Code = "StorageConflict"
	CodeInternal             Code = "InternalError"
)

var codeKinds = map[Code]Kind{
	CodeValidation:           KindValidation,
	CodeNotFound:             KindNotFound,
	CodeSlotUnavailable:      KindPolicy,
	CodeInsufficientCapacity: KindConflict,
	CodeDeadlinePassed:       KindPolicy,
	CodePromoInvalid:         KindPolicy,
	CodePromoExhausted:       KindConflict,
	CodeOverRelease:          KindConflict,
	CodeAlreadyCancelled:     KindPolicy,
	CodeAlreadyCompleted:     KindPolicy,
	CodeNotCancellable:       KindPolicy,
	CodeStorageConflict:      KindConflict,
	CodeInternal:             KindInternal,
}

// Error is the structured failure returned by the core.
type Error struct {
	Kind     Kind
	Code     Code
	Messages []string
	Err      error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if len(e.Messages) > 0 {
		msg += ": " + strings.Join(e.Messages, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can compare against the sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New builds an error whose kind is derived from code.
func New(code Code, messages ...string) *Error {
	kind, ok := codeKinds[code]
	if !ok {
		kind = KindInternal
	}
	return &Error{Kind: kind, Code: code, Messages: messages}
}

// Wrap attaches a cause to a new error of the given code.
func Wrap(code Code, err error, messages ...string) *Error {
	e := New(code, messages...)
	e.Err = err
	return e
}

func Validation(messages ...string) *Error { return New(CodeValidation, messages...) }

func NotFound(messages ...string) *Error { return New(CodeNotFound, messages...) }

func PromoInvalid(reasons ...string) *Error { return New(CodePromoInvalid, reasons...) }

// Internal hides the cause from Messages; it is kept only for logging.
func Internal(err error) *Error {
	return Wrap(CodeInternal, err, "internal error")
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation           = New(CodeValidation)
	ErrNotFound             = New(CodeNotFound)
	ErrSlotUnavailable      = New(CodeSlotUnavailable)
	ErrInsufficientCapacity = New(CodeInsufficientCapacity)
	ErrDeadlinePassed       = New(CodeDeadlinePassed)
	ErrPromoInvalid         = New(CodePromoInvalid)
	ErrPromoExhausted       = New(CodePromoExhausted)
	ErrOverRelease          = New(CodeOverRelease)
	ErrAlreadyCancelled     = New(CodeAlreadyCancelled)
	ErrAlreadyCompleted     = New(CodeAlreadyCompleted)
	ErrNotCancellable       = New(CodeNotCancellable)
	ErrStorageConflict      = New(CodeStorageConflict)
	ErrInternal             = New(CodeInternal)
)

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, treating unknown errors as internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// CodeOf reports the code of err, treating unknown errors as internal.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}

// MessagesOf returns the caller-facing messages of err. Internal errors
// never leak their cause.
func MessagesOf(err error) []string {
	e, ok := As(err)
	if !ok || e.Kind == KindInternal {
		return []string{"internal error"}
	}
	if len(e.Messages) == 0 {
		return []string{string(e.Code)}
	}
	return e.Messages
}
