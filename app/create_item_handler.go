package app

import (
	"context"
	"fmt"

	"olivetrace/domain"
)

type CreateItemHandler struct {
	command ledgerCommand
}

type AttributeInput struct {
	Name  string `json:"name" validate:"required,max=64"`
	Value string `json:"value" validate:"max=256"`
}

type CreateItemRequest struct {
	Name        string           `json:"name" validate:"required,max=128"`
	Description string           `json:"description" validate:"max=1024"`
	Quantity    string           `json:"quantity" validate:"required,kilograms"`
	Attributes  []AttributeInput `json:"attributes" validate:"omitempty,max=32,dive"`
}

func NewCreateItemHandler(writer LedgerWriter, loader DashboardLoader) *CreateItemHandler {
	return &CreateItemHandler{
		command: ledgerCommand{writer: writer, loader: loader},
	}
}

func (h CreateItemHandler) Handle(ctx context.Context, req *CreateItemRequest) (*WriteResponse, error) {
	if err := validateRequest("item.create", req); err != nil {
		return nil, err
	}

	qty, err := parseQuantity("quantity", req.Quantity)
	if err != nil {
		return nil, toHTTPError("item.create", err)
	}

	names := make([]string, 0, len(req.Attributes))
	values := make([]string, 0, len(req.Attributes))
	seen := make(map[string]bool, len(req.Attributes))
	for _, attr := range req.Attributes {
		if seen[attr.Name] {
			return nil, toHTTPError("item.create", &domain.ValidationError{
				Field:  "attributes",
				Reason: fmt.Sprintf("repeat the name %q", attr.Name),
			})
		}
		seen[attr.Name] = true
		names = append(names, attr.Name)
		values = append(values, attr.Value)
	}

	return h.command.execute(ctx, "item.create", domain.MethodCreateItem,
		req.Name, req.Description, qty.BigInt(), names, values)
}
