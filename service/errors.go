package service

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it instead of string
// matching. Anything not carrying an explicit kind is treated as transient
// (remote call or storage failure, safe to surface as retryable).
type Kind int

const (
	KindTransient Kind = iota
	KindValidation
	KindForbidden
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "transient"
	}
}

// Error is a failure tagged with a Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets sentinel values match wrapped copies of themselves by kind and
// message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == e.Message
}

func validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func forbiddenf(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, defaulting to transient for untagged
// failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// Sentinel failures named by the ledger and chat contracts.
var (
	// ErrAlreadyJoined is returned when a participation already exists for
	// the (bet, player) pair.
	ErrAlreadyJoined = &Error{Kind: KindConflict, Message: "already joined this bet"}

	// ErrBetNotJoinable is returned when the bet is closed or its end time
	// has passed.
	ErrBetNotJoinable = &Error{Kind: KindConflict, Message: "bet is not joinable"}

	// ErrAlreadyExists is returned for duplicate creations that are not
	// idempotent in effect.
	ErrAlreadyExists = &Error{Kind: KindConflict, Message: "already exists"}

	// ErrInvalidCredentials is returned on sign-in with a wrong email or
	// password.
	ErrInvalidCredentials = &Error{Kind: KindForbidden, Message: "invalid email or password"}

	// ErrNotSignedIn is returned when an operation requires a session and
	// none is present.
	ErrNotSignedIn = &Error{Kind: KindForbidden, Message: "not signed in"}
)
