package wallet

import "errors"

var (
	// ErrInvalidAmount is returned when amount is <= 0. Never retried.
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrInvalidSourceType is returned for an unknown credit source type.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrInvalidExpiry is returned when a credit grant has no positive lifetime.
	ErrInvalidExpiry = errors.New("invalid expiry: must be at least one day")

	// ErrWalletNotFound is returned when no wallet is provisioned for the phone.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientBalance is returned when a withdrawal exceeds
	// real balance plus active virtual credit.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrWalletFrozen is returned for any mutation on a frozen wallet.
	ErrWalletFrozen = errors.New("wallet is frozen")

	// ErrLockTimeout is a transient failure: the wallet row lock could not be
	// acquired in time. Safe to retry with backoff, nothing was written.
	ErrLockTimeout = errors.New("wallet lock timeout")

	// ErrInternal wraps infrastructure failures.
	ErrInternal = errors.New("internal error")
)
