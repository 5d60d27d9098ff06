package service

import (
	"context"
	"errors"

	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"
	"procurement-backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestViewService projects the request collection into role-scoped,
// read-only lists. Every returned record carries the requester profile and
// the profile of each approver recorded so far.
type RequestViewService interface {
	GetByID(ctx context.Context, id string) (RequestResponse, error)
	ListAll(ctx context.Context) ([]RequestResponse, error)
	ListByRequester(ctx context.Context, userID string) ([]RequestResponse, error)
	PendingFor(ctx context.Context, role string) ([]RequestResponse, error)
	ApprovedBy(ctx context.Context, role, userID string) ([]RequestResponse, error)
	RejectedBy(ctx context.Context, role, userID string) ([]RequestResponse, error)
}

type requestViewService struct {
	requests repository.RequestRepository
}

func NewRequestViewService(requests repository.RequestRepository) RequestViewService {
	return &requestViewService{requests: requests}
}

func (s *requestViewService) GetByID(ctx context.Context, id string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid request id")
	}

	req, err := s.requests.FindByIDWithApprovers(ctx, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return RequestResponse{}, apperror.NotFound("request %s not found", id)
	}
	if err != nil {
		return RequestResponse{}, err
	}
	return toRequestResponse(req), nil
}

func (s *requestViewService) ListAll(ctx context.Context) ([]RequestResponse, error) {
	requests, err := s.requests.List(ctx)
	if err != nil {
		return nil, err
	}
	return toRequestResponses(requests), nil
}

func (s *requestViewService) ListByRequester(ctx context.Context, userID string) ([]RequestResponse, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperror.Validation("invalid user id")
	}

	requests, err := s.requests.ListByRequester(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRequestResponses(requests), nil
}

// PendingFor lists live requests whose turn belongs to role.
func (s *requestViewService) PendingFor(ctx context.Context, role string) ([]RequestResponse, error) {
	if !model.IsValidStage(role) {
		return nil, apperror.Validation("invalid stage role %q", role)
	}

	requests, err := s.requests.ListPendingAtStage(ctx, role)
	if err != nil {
		return nil, err
	}
	return toRequestResponses(requests), nil
}

// ApprovedBy lists requests the given user approved while acting as role.
func (s *requestViewService) ApprovedBy(ctx context.Context, role, userID string) ([]RequestResponse, error) {
	if !model.IsValidStage(role) {
		return nil, apperror.Validation("invalid stage role %q", role)
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperror.Validation("invalid user id")
	}

	requests, err := s.requests.ListApprovedAtStageBy(ctx, role, id)
	if err != nil {
		return nil, err
	}
	return toRequestResponses(requests), nil
}

// RejectedBy lists requests the given user rejected while acting as role.
func (s *requestViewService) RejectedBy(ctx context.Context, role, userID string) ([]RequestResponse, error) {
	if !model.IsValidStage(role) {
		return nil, apperror.Validation("invalid stage role %q", role)
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperror.Validation("invalid user id")
	}

	requests, err := s.requests.ListRejectedAtStageBy(ctx, role, id)
	if err != nil {
		return nil, err
	}
	return toRequestResponses(requests), nil
}

func toRequestResponses(requests []model.Request) []RequestResponse {
	out := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, toRequestResponse(&requests[i]))
	}
	return out
}
