package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"
	"procurement-backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateTenderDTO struct {
	Title        string    `json:"title" binding:"required"`
	Location     string    `json:"location" binding:"required"`
	Category     string    `json:"category" binding:"required"`
	ReferenceNo  string    `json:"reference_no" binding:"required"`
	StartingDate time.Time `json:"starting_date" binding:"required"`
	ClosingDate  time.Time `json:"closing_date" binding:"required"`
	Details      string    `json:"details" binding:"required"`
	RequestID    string    `json:"request_id" binding:"required"`
	CreatedBy    string    `json:"created_by" binding:"required"`
}

type UpdateTenderDTO struct {
	Title        string     `json:"title"`
	Location     string     `json:"location"`
	Category     string     `json:"category"`
	StartingDate *time.Time `json:"starting_date"`
	ClosingDate  *time.Time `json:"closing_date"`
	Details      string     `json:"details"`
	Status       string     `json:"status"`
}

type TenderResponse struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Location     string           `json:"location"`
	Category     string           `json:"category"`
	ReferenceNo  string           `json:"reference_no"`
	StartingDate string           `json:"starting_date"`
	ClosingDate  string           `json:"closing_date"`
	Details      string           `json:"details"`
	RequestID    string           `json:"request_id"`
	Request      *RequestResponse `json:"request,omitempty"`
	Status       string           `json:"status"`
	CreatedBy    string           `json:"created_by"`
	Creator      *UserSummary     `json:"creator,omitempty"`
	Orders       []OrderResponse  `json:"orders,omitempty"`
	CreatedAt    string           `json:"created_at"`
}

// --- Interface ---

type TenderService interface {
	CreateTender(ctx context.Context, req CreateTenderDTO) (TenderResponse, error)
	GetTender(ctx context.Context, id string) (TenderResponse, error)
	ListTenders(ctx context.Context) ([]TenderResponse, error)
	ListTendersByStatus(ctx context.Context, status string) ([]TenderResponse, error)
	ListTendersWithOrders(ctx context.Context) ([]TenderResponse, error)
	CountTenders(ctx context.Context) (int64, error)
	UpdateTender(ctx context.Context, id string, req UpdateTenderDTO) (TenderResponse, error)
	DeleteTender(ctx context.Context, id string) error
}

type tenderService struct {
	tenders  repository.TenderRepository
	requests repository.RequestRepository
	audits   repository.AuditRepository
	txm      repository.TransactionManager
	now      func() time.Time
}

func NewTenderService(tenders repository.TenderRepository, requests repository.RequestRepository, audits repository.AuditRepository, txm repository.TransactionManager) TenderService {
	return &tenderService{tenders: tenders, requests: requests, audits: audits, txm: txm, now: time.Now}
}

// --- Implementation ---

// CreateTender promotes a fully approved request into a public tender.
// Preconditions: the request exists, its workflow status is completed, and
// no tender was derived from it before.
func (s *tenderService) CreateTender(ctx context.Context, req CreateTenderDTO) (TenderResponse, error) {
	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		return TenderResponse{}, apperror.Validation("invalid request_id")
	}
	creatorID, err := uuid.Parse(req.CreatedBy)
	if err != nil {
		return TenderResponse{}, apperror.Validation("invalid created_by")
	}

	if !req.ClosingDate.After(req.StartingDate) {
		return TenderResponse{}, apperror.Validation("closing date must be after starting date")
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TenderResponse{}, apperror.NotFound("no request found with id %s", req.RequestID)
	}
	if err != nil {
		return TenderResponse{}, err
	}
	if request.Status != model.RequestStatusCompleted {
		return TenderResponse{}, apperror.Conflict("request %s is %s, only fully approved requests can become tenders", req.RequestID, request.StageLabel())
	}

	if _, err := s.tenders.FindByRequestID(ctx, requestID); err == nil {
		return TenderResponse{}, apperror.Conflict("a tender already exists for request %s", req.RequestID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return TenderResponse{}, err
	}

	tender := &model.Tender{
		Title:        req.Title,
		Location:     req.Location,
		Category:     req.Category,
		ReferenceNo:  req.ReferenceNo,
		StartingDate: req.StartingDate,
		ClosingDate:  req.ClosingDate,
		Details:      req.Details,
		RequestID:    requestID,
		Status:       model.TenderStatusActive,
		CreatedBy:    creatorID,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.tenders.Create(txCtx, tender); createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return apperror.Invariant("reference number %q is already in use", req.ReferenceNo)
			}
			return createErr
		}
		details, _ := json.Marshal(map[string]interface{}{
			"reference_no": tender.ReferenceNo,
			"request_id":   requestID.String(),
		})
		return s.audits.Create(txCtx, &model.AuditLog{
			UserID:     &creatorID,
			Action:     model.ActionCreateTender,
			EntityID:   tender.ID.String(),
			EntityName: tender.Title,
			Details:    string(details),
		})
	})
	if err != nil {
		return TenderResponse{}, err
	}

	full, err := s.tenders.FindByID(ctx, tender.ID)
	if err != nil {
		return TenderResponse{}, err
	}
	return s.toTenderResponse(full), nil
}

func (s *tenderService) GetTender(ctx context.Context, id string) (TenderResponse, error) {
	tenderID, err := uuid.Parse(id)
	if err != nil {
		return TenderResponse{}, apperror.Validation("invalid tender id")
	}

	tender, err := s.tenders.FindByID(ctx, tenderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TenderResponse{}, apperror.NotFound("no tender found with id %s", id)
	}
	if err != nil {
		return TenderResponse{}, err
	}
	return s.toTenderResponse(tender), nil
}

func (s *tenderService) ListTenders(ctx context.Context) ([]TenderResponse, error) {
	tenders, err := s.tenders.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.toTenderResponses(tenders), nil
}

func (s *tenderService) ListTendersByStatus(ctx context.Context, status string) ([]TenderResponse, error) {
	if status != model.TenderStatusActive && status != model.TenderStatusClosed {
		return nil, apperror.Validation("invalid tender status %q", status)
	}

	tenders, err := s.tenders.ListByEffectiveStatus(ctx, status, s.now())
	if err != nil {
		return nil, err
	}
	return s.toTenderResponses(tenders), nil
}

func (s *tenderService) ListTendersWithOrders(ctx context.Context) ([]TenderResponse, error) {
	tenders, err := s.tenders.ListWithOrders(ctx)
	if err != nil {
		return nil, err
	}
	return s.toTenderResponses(tenders), nil
}

func (s *tenderService) CountTenders(ctx context.Context) (int64, error) {
	return s.tenders.Count(ctx)
}

func (s *tenderService) UpdateTender(ctx context.Context, id string, req UpdateTenderDTO) (TenderResponse, error) {
	tenderID, err := uuid.Parse(id)
	if err != nil {
		return TenderResponse{}, apperror.Validation("invalid tender id")
	}

	tender, err := s.tenders.FindByID(ctx, tenderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TenderResponse{}, apperror.NotFound("no tender found with id %s", id)
	}
	if err != nil {
		return TenderResponse{}, err
	}

	if req.Title != "" {
		tender.Title = req.Title
	}
	if req.Location != "" {
		tender.Location = req.Location
	}
	if req.Category != "" {
		tender.Category = req.Category
	}
	if req.Details != "" {
		tender.Details = req.Details
	}
	if req.StartingDate != nil {
		tender.StartingDate = *req.StartingDate
	}
	if req.ClosingDate != nil {
		tender.ClosingDate = *req.ClosingDate
	}
	if req.Status != "" {
		if req.Status != model.TenderStatusActive && req.Status != model.TenderStatusClosed {
			return TenderResponse{}, apperror.Validation("invalid tender status %q", req.Status)
		}
		tender.Status = req.Status
	}

	if !tender.ClosingDate.After(tender.StartingDate) {
		return TenderResponse{}, apperror.Validation("closing date must be after starting date")
	}

	if err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.tenders.Update(txCtx, tender); saveErr != nil {
			return saveErr
		}
		return s.audits.Create(txCtx, &model.AuditLog{
			Action:     model.ActionUpdateTender,
			EntityID:   tender.ID.String(),
			EntityName: tender.Title,
		})
	}); err != nil {
		return TenderResponse{}, err
	}

	return s.toTenderResponse(tender), nil
}

func (s *tenderService) DeleteTender(ctx context.Context, id string) error {
	tenderID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid tender id")
	}

	if _, err := s.tenders.FindByID(ctx, tenderID); errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("no tender found with id %s", id)
	} else if err != nil {
		return err
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.tenders.Delete(txCtx, tenderID); delErr != nil {
			return delErr
		}
		return s.audits.Create(txCtx, &model.AuditLog{
			Action:   model.ActionDeleteTender,
			EntityID: tenderID.String(),
		})
	})
}

// --- Helpers ---

func (s *tenderService) toTenderResponse(t *model.Tender) TenderResponse {
	resp := TenderResponse{
		ID:           t.ID.String(),
		Title:        t.Title,
		Location:     t.Location,
		Category:     t.Category,
		ReferenceNo:  t.ReferenceNo,
		StartingDate: t.StartingDate.Format(time.RFC3339),
		ClosingDate:  t.ClosingDate.Format(time.RFC3339),
		Details:      t.Details,
		RequestID:    t.RequestID.String(),
		Status:       t.EffectiveStatus(s.now()),
		CreatedBy:    t.CreatedBy.String(),
		Creator:      toUserSummary(t.Creator),
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}

	if t.Request != nil {
		req := toRequestResponse(t.Request)
		resp.Request = &req
	}
	for i := range t.Orders {
		resp.Orders = append(resp.Orders, toOrderResponse(&t.Orders[i]))
	}

	return resp
}

func (s *tenderService) toTenderResponses(tenders []model.Tender) []TenderResponse {
	out := make([]TenderResponse, 0, len(tenders))
	for i := range tenders {
		out = append(out, s.toTenderResponse(&tenders[i]))
	}
	return out
}
