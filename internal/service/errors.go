package service

import "errors"

// Error kinds returned by Service operations.
//
// Every recoverable failure is an *Error wrapping one of these, so callers
// can branch with errors.Is:
//
//	if errors.Is(err, service.ErrInsufficientPoints) {
//	    // show the balance
//	}
var (
	// ErrNotFound is returned when a template, product or execution does
	// not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an execution is not in a state that
	// allows the operation, or another execution is already active.
	ErrInvalidState = errors.New("invalid state")

	// ErrPresetImmutable is returned when updating or deleting a built-in
	// template or product.
	ErrPresetImmutable = errors.New("preset is immutable")

	// ErrInsufficientPoints is returned when an exchange costs more than the
	// current balance.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrInUse is returned when deleting an entity that history still
	// refers to.
	ErrInUse = errors.New("in use")

	// ErrDuplicateName is returned when a name is already taken by another
	// entry of the same catalog.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrInvalid is returned for requests that fail validation.
	ErrInvalid = errors.New("invalid request")
)

// Error is a recoverable business failure. Msg is shown to the user as is.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NewError returns a business failure of the given kind.
func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// IsUserError reports whether err is a business failure rather than a
// storage or programming error.
func IsUserError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// IsNotFound reports whether err is an ErrNotFound failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Code returns a stable machine-readable code for err, or "INTERNAL" for
// errors that are not business failures.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrPresetImmutable):
		return "PRESET_IMMUTABLE"
	case errors.Is(err, ErrInsufficientPoints):
		return "INSUFFICIENT_POINTS"
	case errors.Is(err, ErrInUse):
		return "IN_USE"
	case errors.Is(err, ErrDuplicateName):
		return "DUPLICATE_NAME"
	case errors.Is(err, ErrInvalid):
		return "INVALID"
	default:
		return "INTERNAL"
	}
}

// kinds maps codes back to error kinds for clients decoding a response.
var kinds = map[string]error{
	"NOT_FOUND":           ErrNotFound,
	"INVALID_STATE":       ErrInvalidState,
	"PRESET_IMMUTABLE":    ErrPresetImmutable,
	"INSUFFICIENT_POINTS": ErrInsufficientPoints,
	"IN_USE":              ErrInUse,
	"DUPLICATE_NAME":      ErrDuplicateName,
	"INVALID":             ErrInvalid,
}

// FromCode rebuilds an *Error from a code and message. Unknown codes yield
// nil.
func FromCode(code, msg string) error {
	kind, ok := kinds[code]
	if !ok {
		return nil
	}
	return NewError(kind, msg)
}
