package auth

import (
	"errors"
	"fmt"
)

// Error codes. Signing failures are programming or configuration errors;
// the transport never retries them.
const (
	// ErrCodeMissingCredentials indicates no access key or key material
	// was supplied.
	ErrCodeMissingCredentials = "AUTH_MISSING_CREDENTIALS"

	// ErrCodeBadKeyMaterial indicates the private key is corrupt or its
	// format could not be detected.
	ErrCodeBadKeyMaterial = "AUTH_BAD_KEY_MATERIAL"

	// ErrCodeDuplicateDateHeader indicates the caller set the request
	// date header itself. The signer owns that header; a pre-set value
	// would mask a client bug, so it is rejected rather than
	// overwritten.
	ErrCodeDuplicateDateHeader = "AUTH_DUPLICATE_DATE_HEADER"

	// ErrCodeDuplicateAuthHeader guards against double-signing.
	ErrCodeDuplicateAuthHeader = "AUTH_DUPLICATE_AUTH_HEADER"
)

// Error is a signing or credential error.
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

// Is matches on error code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrMissingCredentials  = &Error{Code: ErrCodeMissingCredentials, Message: "no credentials supplied"}
	ErrBadKeyMaterial      = &Error{Code: ErrCodeBadKeyMaterial, Message: "private key material is corrupt or unrecognized"}
	ErrDuplicateDateHeader = &Error{Code: ErrCodeDuplicateDateHeader, Message: "request date header already present"}
	ErrDuplicateAuthHeader = &Error{Code: ErrCodeDuplicateAuthHeader, Message: "auth header already present"}
)
