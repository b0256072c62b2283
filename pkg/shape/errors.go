package shape

import (
	"errors"
	"fmt"
)

// Error codes for structural problems in shape declarations. These are
// load-time failures; the engine never retries them.
const (
	// ErrCodeMissingType indicates a declaration without a type
	// discriminator or $ref.
	ErrCodeMissingType = "SHAPE_MISSING_TYPE"

	// ErrCodeFreeformMap indicates an object whose additionalProperties
	// is boolean true or otherwise untyped. Freeform maps are
	// unsupported.
	ErrCodeFreeformMap = "SHAPE_FREEFORM_MAP"

	// ErrCodeUnknownReference indicates a $ref naming a definition that
	// does not exist in the resolver's table.
	ErrCodeUnknownReference = "SHAPE_UNKNOWN_REFERENCE"

	// ErrCodeUnsupportedKind indicates a type outside the supported set.
	ErrCodeUnsupportedKind = "SHAPE_UNSUPPORTED_KIND"

	// ErrCodeMalformed indicates a declaration that is not a mapping or
	// is otherwise structurally unusable.
	ErrCodeMalformed = "SHAPE_MALFORMED"
)

// Error is a structural shape-resolution error.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on error code so sentinels compare by code, not identity.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Sentinels for errors.Is checks.
var (
	ErrMissingType      = NewError(ErrCodeMissingType, "declaration has no type")
	ErrFreeformMap      = NewError(ErrCodeFreeformMap, "freeform maps are unsupported")
	ErrUnknownReference = NewError(ErrCodeUnknownReference, "reference to unknown definition")
	ErrUnsupportedKind  = NewError(ErrCodeUnsupportedKind, "unsupported shape kind")
	ErrMalformed        = NewError(ErrCodeMalformed, "malformed declaration")
)
