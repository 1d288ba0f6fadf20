package app

import (
	"context"
	"math/big"

	"olivetrace/domain"
)

type RespondTransferRequest struct {
	TransferID uint64 `params:"transferId" validate:"required"`
}

// AcceptTransferHandler lets the receiver take a pending transfer.
type AcceptTransferHandler struct {
	command ledgerCommand
}

func NewAcceptTransferHandler(writer LedgerWriter, loader DashboardLoader) *AcceptTransferHandler {
	return &AcceptTransferHandler{
		command: ledgerCommand{writer: writer, loader: loader},
	}
}

func (h AcceptTransferHandler) Handle(ctx context.Context, req *RespondTransferRequest) (*WriteResponse, error) {
	if err := validateRequest("transfer.accept", req); err != nil {
		return nil, err
	}
	return h.command.execute(ctx, "transfer.accept", domain.MethodAcceptTransfer, new(big.Int).SetUint64(req.TransferID))
}

// RejectTransferHandler lets the receiver refuse a pending transfer.
type RejectTransferHandler struct {
	command ledgerCommand
}

func NewRejectTransferHandler(writer LedgerWriter, loader DashboardLoader) *RejectTransferHandler {
	return &RejectTransferHandler{
		command: ledgerCommand{writer: writer, loader: loader},
	}
}

func (h RejectTransferHandler) Handle(ctx context.Context, req *RespondTransferRequest) (*WriteResponse, error) {
	if err := validateRequest("transfer.reject", req); err != nil {
		return nil, err
	}
	return h.command.execute(ctx, "transfer.reject", domain.MethodRejectTransfer, new(big.Int).SetUint64(req.TransferID))
}
