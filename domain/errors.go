package domain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrLedgerUnavailable is returned when a ledger read keeps failing after
	// every retry. Callers may offer a retry.
	ErrLedgerUnavailable = errors.New("ledger unavailable")

	// ErrValidation is returned for input rejected before any ledger call.
	ErrValidation = errors.New("validation failed")

	// ErrWriteFailed is returned when a state-changing call reverts or never
	// confirms.
	ErrWriteFailed = errors.New("ledger write failed")

	// ErrReadOnlyLedger is returned for writes when no signing key is configured.
	ErrReadOnlyLedger = errors.New("ledger client is read-only")

	ErrParticipantNotFound = errors.New("participant not found")

	// ErrSupersededLoad is returned by a load whose result was discarded
	// because a newer load for the same view started.
	ErrSupersededLoad = errors.New("load superseded by a newer load")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// WriteError carries the revert reason of a failed state-changing call when
// the ledger exposes one.
type WriteError struct {
	Method string
	TxHash common.Hash
	Reason string
	Err    error
}

func (e *WriteError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Method)
	if e.TxHash != (common.Hash{}) {
		msg += fmt.Sprintf(" (tx %s)", e.TxHash.Hex())
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WriteError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrWriteFailed, e.Err}
	}
	return []error{ErrWriteFailed}
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLedgerUnavailable)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrParticipantNotFound)
}
