package app

import (
	"context"
	"math/big"

	"olivetrace/domain"

	"github.com/ethereum/go-ethereum/common"
)

type InitiateTransferHandler struct {
	command ledgerCommand
}

type InitiateTransferRequest struct {
	ItemID   uint64 `json:"itemId" validate:"required"`
	To       string `json:"to" validate:"required,eth_addr"`
	Quantity string `json:"quantity" validate:"required,kilograms"`
}

func NewInitiateTransferHandler(writer LedgerWriter, loader DashboardLoader) *InitiateTransferHandler {
	return &InitiateTransferHandler{
		command: ledgerCommand{writer: writer, loader: loader},
	}
}

func (h InitiateTransferHandler) Handle(ctx context.Context, req *InitiateTransferRequest) (*WriteResponse, error) {
	if err := validateRequest("transfer.create", req); err != nil {
		return nil, err
	}

	to, err := domain.ParseAddress(req.To)
	if err != nil {
		return nil, toHTTPError("transfer.create", err)
	}
	if to == (common.Address{}) {
		return nil, toHTTPError("transfer.create", &domain.ValidationError{Field: "to", Reason: "must not be the zero address"})
	}
	if h.command.writer != nil && to == h.command.writer.Account() {
		return nil, toHTTPError("transfer.create", &domain.ValidationError{Field: "to", Reason: "must differ from the sender"})
	}

	qty, err := parseQuantity("quantity", req.Quantity)
	if err != nil {
		return nil, toHTTPError("transfer.create", err)
	}

	return h.command.execute(ctx, "transfer.create", domain.MethodInitiateTransfer,
		new(big.Int).SetUint64(req.ItemID), to, qty.BigInt())
}
