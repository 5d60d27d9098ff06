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

type CreateRequestDTO struct {
	Category            string `json:"category" binding:"required"`
	SubCategory         string `json:"sub_category" binding:"required"`
	Title               string `json:"title" binding:"required"`
	Reason              string `json:"reason" binding:"required"`
	ColorPickup         string `json:"color_pickup" binding:"required"`
	CurrentItemCount    *int   `json:"current_item_count" binding:"required"`
	DamagedItemCount    *int   `json:"damaged_item_count" binding:"required"`
	NewItemRequestCount *int   `json:"new_item_request_count" binding:"required"`
	Note                string `json:"note"`
	RequestedUserID     string `json:"requested_user_id" binding:"required"`
	RequestedUserRole   string `json:"requested_user_role"`
}

type AdvanceDTO struct {
	ApproverID string `json:"approver_id" binding:"required"`
	Approved   *bool  `json:"approved"`
	Reason     string `json:"reason"`
}

type UserSummary struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// StageGroupResponse is one stage's approval record on the wire.
type StageGroupResponse struct {
	Approved *bool        `json:"approved"`
	UserID   *string      `json:"user_id"`
	User     *UserSummary `json:"user,omitempty"`
	ActedAt  *string      `json:"acted_at"`
}

// RequestResponse exposes the orthogonal workflow fields plus the legacy
// request_stage label so existing dashboards keep working.
type RequestResponse struct {
	ID                  string       `json:"id"`
	Category            string       `json:"category"`
	SubCategory         string       `json:"sub_category"`
	Title               string       `json:"title"`
	Reason              string       `json:"reason"`
	ColorPickup         string       `json:"color_pickup"`
	CurrentItemCount    int          `json:"current_item_count"`
	DamagedItemCount    int          `json:"damaged_item_count"`
	NewItemRequestCount int          `json:"new_item_request_count"`
	Note                string       `json:"note"`
	RequestedUserID     string       `json:"requested_user_id"`
	RequestedUser       *UserSummary `json:"requested_user,omitempty"`
	RequestedUserRole   string       `json:"requested_user_role"`

	Status        string `json:"status"`
	CurrentStage  string `json:"current_stage,omitempty"`
	RejectedStage string `json:"rejected_stage,omitempty"`
	RequestStage  string `json:"request_stage"`
	IsApproved    bool   `json:"is_approved"`

	Stages map[string]StageGroupResponse `json:"stages"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Notifier pushes workflow events to connected dashboards. Implemented by the
// websocket hub; may be nil in tests.
type Notifier interface {
	BroadcastJSON(v interface{})
}

// --- Interface ---

// WorkflowService is the only component allowed to mutate a request's
// stage and approval fields.
type WorkflowService interface {
	CreateRequest(ctx context.Context, req CreateRequestDTO) (RequestResponse, error)
	Advance(ctx context.Context, requestID, fromStage, approverID string, approved bool, reason string) (RequestResponse, error)
	SetStage(ctx context.Context, requestID, stage string) (RequestResponse, error)
	DeleteRequest(ctx context.Context, requestID string) error
}

type workflowService struct {
	requests repository.RequestRepository
	audits   repository.AuditRepository
	txm      repository.TransactionManager
	hub      Notifier
}

func NewWorkflowService(requests repository.RequestRepository, audits repository.AuditRepository, txm repository.TransactionManager, hub Notifier) WorkflowService {
	return &workflowService{requests: requests, audits: audits, txm: txm, hub: hub}
}

// --- Implementation ---

// CreateRequest persists a new request. The canonical flow always starts at
// HOD: the creating department head's self-approval is stamped into the HOD
// group and the request lands pending at the Logistics Officer.
func (s *workflowService) CreateRequest(ctx context.Context, req CreateRequestDTO) (RequestResponse, error) {
	requesterID, err := uuid.Parse(req.RequestedUserID)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid requested_user_id")
	}

	if req.Title == "" || req.Category == "" || req.SubCategory == "" || req.Reason == "" || req.ColorPickup == "" {
		return RequestResponse{}, apperror.Validation("category, sub_category, title, reason and color_pickup are required")
	}
	if req.CurrentItemCount == nil || req.DamagedItemCount == nil || req.NewItemRequestCount == nil {
		return RequestResponse{}, apperror.Validation("current_item_count, damaged_item_count and new_item_request_count are required")
	}

	role := req.RequestedUserRole
	if role == "" {
		role = model.StageHOD
	}

	now := time.Now()
	approved := true
	request := &model.Request{
		Category:            req.Category,
		SubCategory:         req.SubCategory,
		Title:               req.Title,
		Reason:              req.Reason,
		ColorPickup:         req.ColorPickup,
		CurrentItemCount:    *req.CurrentItemCount,
		DamagedItemCount:    *req.DamagedItemCount,
		NewItemRequestCount: *req.NewItemRequestCount,
		Note:                req.Note,
		RequestedUserID:     requesterID,
		RequestedUserRole:   role,
		Status:              model.RequestStatusPending,
		CurrentStage:        model.StageLogistics,
		HODApproved:         &approved,
		HODUserID:           &requesterID,
		HODActedAt:          &now,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.requests.Create(txCtx, request); createErr != nil {
			return createErr
		}
		return s.audit(txCtx, &requesterID, model.ActionCreateRequest, request.ID.String(), request.Title, map[string]interface{}{
			"category":      request.Category,
			"current_stage": request.CurrentStage,
		})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	full, err := s.requests.FindByIDWithApprovers(ctx, request.ID)
	if err != nil {
		return RequestResponse{}, err
	}

	s.notify("request.created", full)
	return toRequestResponse(full), nil
}

// Advance applies one stage transition. The write is a conditional update
// keyed on (pending, fromStage): when a second approver races the same
// transition, exactly one update takes effect and the loser gets a conflict.
func (s *workflowService) Advance(ctx context.Context, requestID, fromStage, approverID string, approved bool, reason string) (RequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid request id")
	}
	actor, err := uuid.Parse(approverID)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid approver id")
	}

	prefix, ok := model.StageColumnPrefix(fromStage)
	if !ok {
		return RequestResponse{}, apperror.Validation("invalid stage %q", fromStage)
	}

	now := time.Now()
	updates := map[string]interface{}{
		prefix + "_approved": approved,
		prefix + "_user_id":  actor,
		prefix + "_acted_at": now,
		"updated_at":         now,
	}

	action := model.ActionApproveStage
	if approved {
		if next, more := model.NextStage(fromStage); more {
			updates["current_stage"] = next
		} else {
			updates["status"] = model.RequestStatusCompleted
			updates["current_stage"] = ""
		}
	} else {
		action = model.ActionRejectStage
		if reason == "" {
			reason = "Rejected by " + fromStage
		}
		updates["status"] = model.RequestStatusRejected
		updates["rejected_stage"] = fromStage
		updates["current_stage"] = ""
		updates["note"] = reason
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		rows, advErr := s.requests.AdvanceStage(txCtx, id, fromStage, updates)
		if advErr != nil {
			return advErr
		}
		if rows == 0 {
			return s.explainStaleAdvance(txCtx, id, fromStage)
		}
		return s.audit(txCtx, &actor, action, id.String(), fromStage, map[string]interface{}{
			"from_stage": fromStage,
			"approved":   approved,
			"reason":     reason,
		})
	})
	if err != nil {
		return RequestResponse{}, err
	}

	full, err := s.requests.FindByIDWithApprovers(ctx, id)
	if err != nil {
		return RequestResponse{}, err
	}

	s.notify("request.stage_changed", full)
	return toRequestResponse(full), nil
}

// explainStaleAdvance turns a zero-row conditional update into the precise
// error: missing request, terminal request, or stage mismatch.
func (s *workflowService) explainStaleAdvance(ctx context.Context, id uuid.UUID, fromStage string) error {
	current, err := s.requests.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("request %s not found", id)
	}
	if err != nil {
		return err
	}
	if current.IsTerminal() {
		return apperror.Conflict("request is already %s", current.StageLabel())
	}
	return apperror.Conflict("request is pending at %q, not %q", current.CurrentStage, fromStage)
}

// SetStage is the legacy manual stage override: it moves a live request to
// one of the five stages without recording an approval.
func (s *workflowService) SetStage(ctx context.Context, requestID, stage string) (RequestResponse, error) {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return RequestResponse{}, apperror.Validation("invalid request id")
	}
	if !model.IsValidStage(stage) {
		return RequestResponse{}, apperror.Validation("invalid request stage")
	}

	rows, err := s.requests.SetCurrentStage(ctx, id, stage)
	if err != nil {
		return RequestResponse{}, err
	}
	if rows == 0 {
		if _, findErr := s.requests.FindByID(ctx, id); errors.Is(findErr, gorm.ErrRecordNotFound) {
			return RequestResponse{}, apperror.NotFound("request %s not found", id)
		}
		return RequestResponse{}, apperror.Conflict("request is terminal and cannot change stage")
	}

	full, err := s.requests.FindByIDWithApprovers(ctx, id)
	if err != nil {
		return RequestResponse{}, err
	}
	return toRequestResponse(full), nil
}

// DeleteRequest is the explicit administrative delete.
func (s *workflowService) DeleteRequest(ctx context.Context, requestID string) error {
	id, err := uuid.Parse(requestID)
	if err != nil {
		return apperror.Validation("invalid request id")
	}
	if _, err := s.requests.FindByID(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("request %s not found", id)
	} else if err != nil {
		return err
	}
	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.requests.Delete(txCtx, id); delErr != nil {
			return delErr
		}
		return s.audit(txCtx, nil, model.ActionDeleteRequest, id.String(), "", nil)
	})
}

// --- Helpers ---

func (s *workflowService) audit(ctx context.Context, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	return s.audits.Create(ctx, &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	})
}

func (s *workflowService) notify(event string, req *model.Request) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastJSON(map[string]interface{}{
		"type":          event,
		"request_id":    req.ID.String(),
		"status":        req.Status,
		"current_stage": req.CurrentStage,
		"request_stage": req.StageLabel(),
	})
}

func toUserSummary(u *model.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID.String(), FullName: u.FullName, Email: u.Email}
}

func toRequestResponse(r *model.Request) RequestResponse {
	resp := RequestResponse{
		ID:                  r.ID.String(),
		Category:            r.Category,
		SubCategory:         r.SubCategory,
		Title:               r.Title,
		Reason:              r.Reason,
		ColorPickup:         r.ColorPickup,
		CurrentItemCount:    r.CurrentItemCount,
		DamagedItemCount:    r.DamagedItemCount,
		NewItemRequestCount: r.NewItemRequestCount,
		Note:                r.Note,
		RequestedUserID:     r.RequestedUserID.String(),
		RequestedUser:       toUserSummary(r.RequestedUser),
		RequestedUserRole:   r.RequestedUserRole,
		Status:              r.Status,
		CurrentStage:        r.CurrentStage,
		RejectedStage:       r.RejectedStage,
		RequestStage:        r.StageLabel(),
		IsApproved:          r.Status == model.RequestStatusCompleted,
		Stages:              make(map[string]StageGroupResponse, 5),
		CreatedAt:           r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           r.UpdatedAt.Format(time.RFC3339),
	}

	for _, stage := range model.Stages() {
		approved, userID, actedAt := r.StageGroup(stage)
		group := StageGroupResponse{Approved: approved, User: toUserSummary(r.StageUser(stage))}
		if userID != nil {
			id := userID.String()
			group.UserID = &id
		}
		if actedAt != nil {
			ts := actedAt.Format(time.RFC3339)
			group.ActedAt = &ts
		}
		resp.Stages[stage] = group
	}

	return resp
}
