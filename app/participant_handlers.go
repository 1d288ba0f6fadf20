package app

import (
	"context"
	"errors"

	"olivetrace/domain"
	"olivetrace/pkg/httperror"
)

type GetParticipantHandler struct {
	repository Repository
}

func NewGetParticipantHandler(repository Repository) *GetParticipantHandler {
	return &GetParticipantHandler{
		repository: repository,
	}
}

type GetParticipantRequest struct {
	Address string `params:"address" validate:"required,eth_addr"`
}

type GetParticipantResponse struct {
	Participant domain.Participant `json:"participant"`
}

func (h GetParticipantHandler) Handle(ctx context.Context, req *GetParticipantRequest) (*GetParticipantResponse, error) {
	if err := validateRequest("participant.show", req); err != nil {
		return nil, err
	}

	address, err := domain.ParseAddress(req.Address)
	if err != nil {
		return nil, toHTTPError("participant.show", err)
	}

	participant, err := h.repository.GetParticipant(ctx, address.Hex())
	if err != nil {
		return nil, toHTTPError("participant.show", err)
	}

	return &GetParticipantResponse{
		Participant: participant,
	}, nil
}

type ListParticipantsHandler struct {
	repository Repository
}

func NewListParticipantsHandler(repository Repository) *ListParticipantsHandler {
	return &ListParticipantsHandler{
		repository: repository,
	}
}

type ListParticipantsRequest struct {
	Role     string `query:"role" validate:"omitempty,oneof=producer factory retailer admin"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ListParticipantsResponse struct {
	Participants []domain.Participant `json:"participants"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"pageSize"`
	Total        int                  `json:"total"`
}

func (h ListParticipantsHandler) Handle(ctx context.Context, req *ListParticipantsRequest) (*ListParticipantsResponse, error) {
	if err := validateRequest("participant.index", req); err != nil {
		return nil, err
	}

	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}
	role := domain.Role(req.Role)

	participants, err := h.repository.GetParticipants(ctx, role, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		return nil, toHTTPError("participant.index", err)
	}

	total, err := h.repository.CountParticipants(ctx, role)
	if err != nil {
		return nil, toHTTPError("participant.index", err)
	}

	return &ListParticipantsResponse{
		Participants: participants,
		Page:         req.Page,
		PageSize:     req.PageSize,
		Total:        total,
	}, nil
}

type UpsertParticipantHandler struct {
	repository Repository
}

func NewUpsertParticipantHandler(repository Repository) *UpsertParticipantHandler {
	return &UpsertParticipantHandler{
		repository: repository,
	}
}

type UpsertParticipantRequest struct {
	Address string `params:"address" validate:"required,eth_addr"`
	Name    string `json:"name" validate:"required,max=128"`
	Role    string `json:"role" validate:"required,oneof=producer factory retailer admin"`
}

type UpsertParticipantResponse struct {
	Participant domain.Participant `json:"participant"`
}

// Handle registers or updates a participant. Only a registered admin may do
// so, except while no admin exists yet.
func (h UpsertParticipantHandler) Handle(ctx context.Context, req *UpsertParticipantRequest) (*UpsertParticipantResponse, error) {
	if err := validateRequest("participant.upsert", req); err != nil {
		return nil, err
	}

	if err := h.authorize(ctx); err != nil {
		return nil, err
	}

	address, err := domain.ParseAddress(req.Address)
	if err != nil {
		return nil, toHTTPError("participant.upsert", err)
	}

	participant, err := h.repository.UpsertParticipant(ctx, domain.Participant{
		Address: address.Hex(),
		Name:    req.Name,
		Role:    domain.Role(req.Role),
	})
	if err != nil {
		return nil, toHTTPError("participant.upsert", err)
	}

	return &UpsertParticipantResponse{
		Participant: participant,
	}, nil
}

func (h UpsertParticipantHandler) authorize(ctx context.Context) error {
	caller, ok := ParticipantFromContext(ctx)
	if !ok {
		return httperror.Unauthorized("participant.upsert.unauthorized", "Participant address header is required", nil)
	}

	admins, err := h.repository.CountParticipants(ctx, domain.RoleAdmin)
	if err != nil {
		return toHTTPError("participant.upsert", err)
	}
	if admins == 0 {
		return nil
	}

	p, err := h.repository.GetParticipant(ctx, caller.Hex())
	if err != nil && !errors.Is(err, domain.ErrParticipantNotFound) {
		return toHTTPError("participant.upsert", err)
	}
	if err != nil || p.Role != domain.RoleAdmin {
		return httperror.Forbidden("participant.upsert.forbidden", "Only an admin can manage participants", nil)
	}
	return nil
}
