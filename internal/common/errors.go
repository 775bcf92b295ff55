package common

import "errors"

// Error kinds shared by every service. Handlers map them to status codes.
var (
	ErrBadInput          = errors.New("bad input")
	ErrRecordNotFound    = errors.New("record not found")
	ErrForbidden         = errors.New("forbidden")
	ErrRateLimited       = errors.New("rate limited")
	ErrUploadFailed      = errors.New("upload failed")
	ErrPersistenceFailed = errors.New("persistence failed")
	ErrEditConflict      = errors.New("edit conflict")
)

// Error carries a user-facing message on top of one of the error kinds above.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func NewError(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the user-facing message of err, or fallback when err does
// not carry one.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	var v ValidationError
	if errors.As(err, &v) {
		if _, msg := v.First(); msg != "" {
			return msg
		}
	}
	return fallback
}
