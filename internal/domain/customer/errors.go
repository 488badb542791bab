package customer

import "errors"

var (
	// ErrNotFound is returned when no customer exists for the phone.
	ErrNotFound = errors.New("customer not found")

	// ErrAlreadyExists is returned when provisioning a phone twice.
	ErrAlreadyExists = errors.New("customer already exists")

	ErrInternal = errors.New("internal error")
)
