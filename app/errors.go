package app

import (
	"context"
	"errors"

	"olivetrace/domain"
	"olivetrace/pkg/httperror"

	"github.com/ethereum/go-ethereum/common"
)

// toHTTPError maps domain failures to the response a caller can act on:
// fix the input, retry later or contact support.
func toHTTPError(code string, err error) error {
	var httpErr *httperror.Error
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return httperror.BadRequest(
			code+".validation_failed",
			validationErr.Error(),
			map[string]string{"field": validationErr.Field, "reason": validationErr.Reason},
		)
	}

	var writeErr *domain.WriteError
	switch {
	case errors.Is(err, domain.ErrParticipantNotFound):
		return httperror.NotFound(code+".not_found", "Participant not found", nil)
	case errors.Is(err, domain.ErrReadOnlyLedger):
		return httperror.ServiceUnavailable(code+".read_only", "Ledger writes are disabled on this node", nil)
	case errors.As(err, &writeErr):
		details := map[string]string{"method": writeErr.Method}
		if writeErr.Reason != "" {
			details["reason"] = writeErr.Reason
		}
		if writeErr.TxHash != (common.Hash{}) {
			details["txHash"] = writeErr.TxHash.Hex()
		}
		return httperror.BadGateway(code+".write_failed", "The ledger rejected the transaction", details)
	case errors.Is(err, domain.ErrLedgerUnavailable), errors.Is(err, context.DeadlineExceeded):
		return httperror.ServiceUnavailable("ledger.unavailable", "The ledger is unavailable, try again shortly", err)
	default:
		return httperror.InternalServerError(code+".internal_server_error", "Internal server error", err)
	}
}
