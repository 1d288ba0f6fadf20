package app

import (
	"context"
	"fmt"
	"math/big"

	"olivetrace/domain"
)

type ProcessItemHandler struct {
	command ledgerCommand
}

type ProcessInput struct {
	ItemID   uint64 `json:"itemId" validate:"required"`
	Quantity string `json:"quantity" validate:"required,kilograms"`
}

// ProcessItemRequest consumes quantities of existing items, for example
// olives, to mint a new product such as oil.
type ProcessItemRequest struct {
	Inputs      []ProcessInput `json:"inputs" validate:"required,min=1,max=16,dive"`
	Name        string         `json:"name" validate:"required,max=128"`
	Description string         `json:"description" validate:"max=1024"`
	Quantity    string         `json:"quantity" validate:"required,kilograms"`
}

func NewProcessItemHandler(writer LedgerWriter, loader DashboardLoader) *ProcessItemHandler {
	return &ProcessItemHandler{
		command: ledgerCommand{writer: writer, loader: loader},
	}
}

func (h ProcessItemHandler) Handle(ctx context.Context, req *ProcessItemRequest) (*WriteResponse, error) {
	if err := validateRequest("item.process", req); err != nil {
		return nil, err
	}

	output, err := parseQuantity("quantity", req.Quantity)
	if err != nil {
		return nil, toHTTPError("item.process", err)
	}

	ids := make([]*big.Int, 0, len(req.Inputs))
	quantities := make([]*big.Int, 0, len(req.Inputs))
	seen := make(map[uint64]bool, len(req.Inputs))
	for i, input := range req.Inputs {
		if seen[input.ItemID] {
			return nil, toHTTPError("item.process", &domain.ValidationError{
				Field:  fmt.Sprintf("inputs[%d].itemId", i),
				Reason: fmt.Sprintf("repeats item %d", input.ItemID),
			})
		}
		seen[input.ItemID] = true

		qty, err := parseQuantity(fmt.Sprintf("inputs[%d].quantity", i), input.Quantity)
		if err != nil {
			return nil, toHTTPError("item.process", err)
		}
		ids = append(ids, new(big.Int).SetUint64(input.ItemID))
		quantities = append(quantities, qty.BigInt())
	}

	return h.command.execute(ctx, "item.process", domain.MethodProcessItem,
		ids, quantities, req.Name, req.Description, output.BigInt())
}
