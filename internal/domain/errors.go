package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPermissionDeny     = errors.New("permission denied")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("conflict")
)

// FieldError is one entry of a batch validation failure.
type FieldError struct {
	Field  string `json:"field"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		fields = append(fields, fe.Field+":"+fe.Code)
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func (e *ValidationError) Add(field, code, detail string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Code: code, Detail: detail})
}

// OrNil returns nil when no field errors were collected.
func (e *ValidationError) OrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

type ForbiddenError struct {
	Required []PermissionKey
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("missing permission %v", e.Required)
}

func (e *ForbiddenError) Unwrap() error { return ErrPermissionDeny }

type PageAccessDeniedError struct {
	Permission PermissionKey
	Page       int
	Section    string
}

func (e *PageAccessDeniedError) Error() string {
	return fmt.Sprintf("page %d of %s is restricted", e.Page, e.Permission)
}

func (e *PageAccessDeniedError) Unwrap() error { return ErrPermissionDeny }

// TransitionError rejects a backward resolution_status change.
type TransitionError struct {
	From ResolutionStatus
	To   ResolutionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move from %s to %s; reopen the ticket instead", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidInput }

func (e *TransitionError) FieldError() FieldError {
	return FieldError{Field: "resolution_status", Code: "invalid_transition", Detail: e.Error()}
}

// UnknownKeysError reports role or permission keys absent from the registry.
type UnknownKeysError struct {
	InvalidRoles []RoleKey
	InvalidPerms []PermissionKey
}

func (e *UnknownKeysError) Error() string {
	return fmt.Sprintf("unknown keys: roles=%v perms=%v", e.InvalidRoles, e.InvalidPerms)
}

func (e *UnknownKeysError) Unwrap() error { return ErrInvalidInput }
