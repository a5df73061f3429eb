package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflictUnresolved = errors.New("schedule conflict unresolved")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrCampaignActive     = errors.New("campaign is active")
)

// NotFoundError reports an unknown campaign or user id.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// CampaignNotFound builds a NotFoundError for a campaign id.
func CampaignNotFound(id int64) error {
	return &NotFoundError{Entity: "campaign", ID: fmt.Sprint(id)}
}

// ValidationError reports malformed input for a named field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Invalid is a shorthand constructor for ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreError wraps a persistence failure. It matches ErrStoreUnavailable and
// unwraps to the driver error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// StoreFailure wraps err as a StoreError unless it is nil or already a
// domain error that should pass through unchanged.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrCampaignActive) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
