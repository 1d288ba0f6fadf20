package app

import (
	"context"
	"errors"

	"olivetrace/domain"
	"olivetrace/pkg/httperror"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// WriteResponse is returned by every state-changing endpoint.
type WriteResponse struct {
	TxHash      string            `json:"txHash"`
	BlockNumber uint64            `json:"blockNumber"`
	ItemIDs     []uint64          `json:"itemIds,omitempty"`
	Events      []domain.RawEvent `json:"events"`
}

// ledgerCommand submits one contract call for the participant this node
// signs for, waits for it to be mined and drops the cached views it may
// have changed. Local state is never patched; the next load re-derives it.
type ledgerCommand struct {
	writer LedgerWriter
	loader DashboardLoader
}

func (c ledgerCommand) execute(ctx context.Context, code, method string, args ...any) (*WriteResponse, error) {
	if c.writer == nil || c.writer.ReadOnly() {
		return nil, toHTTPError(code, domain.ErrReadOnlyLedger)
	}

	caller, ok := ParticipantFromContext(ctx)
	if !ok {
		return nil, httperror.Unauthorized(code+".unauthorized", "Participant address header is required", nil)
	}
	if caller != c.writer.Account() {
		return nil, httperror.Forbidden(
			code+".forbidden",
			"This node cannot sign for the calling participant",
			map[string]string{"caller": caller.Hex()},
		)
	}

	ptx, err := c.writer.Submit(ctx, method, args...)
	if err != nil {
		c.invalidate(ctx, nil)
		return nil, toHTTPError(code, err)
	}

	receipt, err := c.writer.Await(ctx, ptx)
	if err != nil {
		c.invalidate(ctx, nil)
		return nil, toHTTPError(code, err)
	}
	c.invalidate(ctx, receipt)

	zap.L().Info("Ledger command applied",
		zap.String("method", method),
		zap.String("tx", receipt.TxHash.Hex()),
		zap.Uint64("block", receipt.BlockNumber),
	)

	events := receipt.Events
	if events == nil {
		events = []domain.RawEvent{}
	}
	return &WriteResponse{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber,
		ItemIDs:     receipt.CreatedItemIDs(),
		Events:      events,
	}, nil
}

func (c ledgerCommand) invalidate(ctx context.Context, receipt *domain.Receipt) {
	if c.loader == nil {
		return
	}
	identities := []common.Address{c.writer.Account()}
	if receipt != nil {
		identities = append(identities, receipt.Participants()...)
	}
	c.loader.Invalidate(ctx, identities...)
}

func parseQuantity(field, kg string) (domain.Quantity, error) {
	qty, err := domain.ParseKilograms(kg)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			return 0, &domain.ValidationError{Field: field, Reason: ve.Reason}
		}
		return 0, err
	}
	if qty == 0 {
		return 0, &domain.ValidationError{Field: field, Reason: "must be greater than zero"}
	}
	return qty, nil
}
