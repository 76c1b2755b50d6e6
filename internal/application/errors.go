package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting participant lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrUnauthenticated is returned when no valid session credential was presented.
	ErrUnauthenticated = errors.New("application: unauthenticated")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrOwnerCannotBeAbsent is returned when a room owner tries to mark themselves absent.
	ErrOwnerCannotBeAbsent = errors.New("application: owner cannot be absent")
	// ErrRoomIDExhausted is returned when no unused room identifier could be generated.
	ErrRoomIDExhausted = errors.New("application: room identifier space exhausted")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
