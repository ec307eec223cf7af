package cognito

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenMalformed is returned when the token cannot be decoded or has no kid header
	ErrTokenMalformed = errors.New("token malformed")

	// ErrSignatureInvalid is returned when the RS256 signature does not verify
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrClaimsInvalid is returned when an enabled claims check (exp, nbf, iss, aud) fails
	ErrClaimsInvalid = errors.New("claims invalid")

	// ErrKeyResolution matches every *KeyResolutionError
	ErrKeyResolution = errors.New("key resolution failed")
)

// ResolutionCause tells why a signing key could not be resolved
type ResolutionCause string

const (
	CauseTransport     ResolutionCause = "transport"
	CauseStatus        ResolutionCause = "status"
	CauseMalformedJSON ResolutionCause = "malformed_json"
	CauseMissingKeys   ResolutionCause = "missing_keys"
	CauseKeyNotFound   ResolutionCause = "key_not_found"
	CauseInvalidKey    ResolutionCause = "invalid_key"
)

// KeyResolutionError reports a failed lookup of a signing key by kid
type KeyResolutionError struct {
	KeyID      string
	Cause      ResolutionCause
	StatusCode int // set when Cause is CauseStatus
	Err        error
}

func newResolutionError(kid string, cause ResolutionCause, err error) *KeyResolutionError {
	return &KeyResolutionError{KeyID: kid, Cause: cause, Err: err}
}

// Error implements the error interface
func (e *KeyResolutionError) Error() string {
	msg := fmt.Sprintf("%s: kid %q: %s", ErrKeyResolution, e.KeyID, e.Cause)
	if e.Cause == CauseStatus {
		msg = fmt.Sprintf("%s %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *KeyResolutionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrKeyResolution) match any resolution failure
func (e *KeyResolutionError) Is(target error) bool {
	return target == ErrKeyResolution
}

// ResolutionCauseOf returns the cause of a key resolution failure, or "" if err is not one
func ResolutionCauseOf(err error) ResolutionCause {
	var resErr *KeyResolutionError
	if errors.As(err, &resErr) {
		return resErr.Cause
	}
	return ""
}
