package app

import (
	"context"

	"olivetrace/domain"
)

type GetTransfersHandler struct {
	repository Repository
	loader     DashboardLoader
}

func NewGetTransfersHandler(repository Repository, loader DashboardLoader) *GetTransfersHandler {
	return &GetTransfersHandler{
		repository: repository,
		loader:     loader,
	}
}

type GetTransfersRequest struct {
	Address string `params:"address" validate:"required,eth_addr"`
	Role    string `query:"role" validate:"omitempty,oneof=producer factory retailer admin"`
	Status  string `query:"status" validate:"omitempty,oneof=IN_TRANSIT COMPLETED CANCELLED"`
}

type GetTransfersResponse struct {
	BlockHeight uint64            `json:"blockHeight"`
	Transfers   []domain.Transfer `json:"transfers"`
}

func (h GetTransfersHandler) Handle(ctx context.Context, req *GetTransfersRequest) (*GetTransfersResponse, error) {
	if err := validateRequest("transfer.index", req); err != nil {
		return nil, err
	}

	dashReq, err := resolveDashboardRequest(ctx, h.repository, req.Address, req.Role, nil)
	if err != nil {
		return nil, toHTTPError("transfer.index", err)
	}

	view, err := h.loader.Load(ctx, dashReq)
	if err != nil {
		return nil, toHTTPError("transfer.index", err)
	}

	transfers := make([]domain.Transfer, 0, len(view.Transfers))
	for _, t := range view.Transfers {
		if req.Status == "" || t.Status.String() == req.Status {
			transfers = append(transfers, t)
		}
	}

	return &GetTransfersResponse{
		BlockHeight: view.BlockHeight,
		Transfers:   transfers,
	}, nil
}
