// ABOUTME: Typed domain errors for the collaborator grant layer.
// ABOUTME: Callers distinguish them with errors.As; the API maps them to 404/403/422.
package collab

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError reports that a dataset, user, organization, or grant does not
// exist. Always terminal for the operation.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// ForbiddenError reports a failed authorization check, naming the denied
// actor and action.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

// ValidationError reports a bad principal type, capacity, or filter value,
// naming the allowed set.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func notFound(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...any) error {
	return &ForbiddenError{Msg: fmt.Sprintf(format, args...)}
}

func invalidCapacity(allowed []Capacity) error {
	names := make([]string, len(allowed))
	for i, c := range allowed {
		names[i] = string(c)
	}
	return &ValidationError{Msg: fmt.Sprintf("capacity must be one of %q", strings.Join(names, ", "))}
}

func invalidPrincipalType() error {
	names := make([]string, len(PrincipalTypes))
	for i, t := range PrincipalTypes {
		names[i] = string(t)
	}
	return &ValidationError{Msg: fmt.Sprintf("type must be one of %q", strings.Join(names, ", "))}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsForbidden reports whether err is a ForbiddenError.
func IsForbidden(err error) bool {
	var fb *ForbiddenError
	return errors.As(err, &fb)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
