package xerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindInvalidState
	KindUpstream
	KindUnsupportedToken
	KindUnsupportedNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindConflict:
		return "ConflictError"
	case KindNotFound:
		return "NotFoundError"
	case KindInvalidState:
		return "InvalidStateError"
	case KindUpstream:
		return "UpstreamError"
	case KindUnsupportedToken:
		return "UnsupportedTokenError"
	case KindUnsupportedNetwork:
		return "UnsupportedNetworkError"
	default:
		return "InternalError"
	}
}

// Error is a classified application error
type Error struct {
	Kind Kind   `json:"kind"`
	Msg  string `json:"msg"`
	Err  error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, xerr.ErrNotFound) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrUpstream     = &Error{Kind: KindUpstream}
)

func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return New(KindValidation, format, args...)
}

func Conflict(format string, args ...any) error {
	return New(KindConflict, format, args...)
}

func NotFound(format string, args ...any) error {
	return New(KindNotFound, format, args...)
}

func InvalidState(format string, args ...any) error {
	return New(KindInvalidState, format, args...)
}

// Upstream wraps a failed remote call; the message is passed through as is
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == KindUpstream {
		return err
	}
	return &Error{Kind: KindUpstream, Msg: err.Error(), Err: err}
}

// KindOf returns the kind of err, KindInternal when unclassified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error to its response status code
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConflict, KindInvalidState, KindUnsupportedToken, KindUnsupportedNetwork:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
