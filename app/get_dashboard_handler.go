package app

import (
	"context"
	"errors"

	"olivetrace/app/dashboard"
	"olivetrace/domain"
)

type GetDashboardHandler struct {
	repository Repository
	loader     DashboardLoader
	sessions   SessionTracker
}

func NewGetDashboardHandler(repository Repository, loader DashboardLoader, sessions SessionTracker) *GetDashboardHandler {
	return &GetDashboardHandler{
		repository: repository,
		loader:     loader,
		sessions:   sessions,
	}
}

type GetDashboardRequest struct {
	Address      string `params:"address" validate:"required,eth_addr"`
	Role         string `query:"role" validate:"omitempty,oneof=producer factory retailer admin"`
	IncludeEmpty *bool  `query:"includeEmpty"`
}

type GetDashboardResponse struct {
	Dashboard *dashboard.View `json:"dashboard"`
}

func (h GetDashboardHandler) Handle(ctx context.Context, req *GetDashboardRequest) (*GetDashboardResponse, error) {
	if err := validateRequest("dashboard.show", req); err != nil {
		return nil, err
	}

	dashReq, err := resolveDashboardRequest(ctx, h.repository, req.Address, req.Role, req.IncludeEmpty)
	if err != nil {
		return nil, toHTTPError("dashboard.show", err)
	}

	view, err := h.view(ctx, dashReq)
	if err != nil {
		return nil, toHTTPError("dashboard.show", err)
	}

	return &GetDashboardResponse{
		Dashboard: view,
	}, nil
}

func (h GetDashboardHandler) view(ctx context.Context, req dashboard.Request) (*dashboard.View, error) {
	if h.sessions == nil {
		return h.loader.Load(ctx, req)
	}
	return h.sessions.View(ctx, req)
}

// resolveDashboardRequest fills in the role from the participant registry
// when the caller did not name one. Unregistered addresses get the most
// restrictive view.
func resolveDashboardRequest(ctx context.Context, repository Repository, address, role string, includeEmpty *bool) (dashboard.Request, error) {
	identity, err := domain.ParseAddress(address)
	if err != nil {
		return dashboard.Request{}, err
	}

	req := dashboard.Request{
		Identity:           identity,
		Role:               domain.Role(role),
		IncludeZeroBalance: includeEmpty,
	}
	if req.Role != "" {
		return req, nil
	}

	req.Role = domain.RoleRetailer
	if repository == nil {
		return req, nil
	}

	participant, err := repository.GetParticipant(ctx, identity.Hex())
	switch {
	case errors.Is(err, domain.ErrParticipantNotFound):
		return req, nil
	case err != nil:
		return dashboard.Request{}, err
	}
	req.Role = participant.Role
	return req, nil
}
