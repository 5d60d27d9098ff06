package service

import (
	"context"
	"time"

	"procurement-backend/internal/model"
	"procurement-backend/internal/repository"
)

type AuditLogResponse struct {
	ID         string  `json:"id"`
	UserID     *string `json:"user_id"`
	UserName   string  `json:"user_name,omitempty"`
	Action     string  `json:"action"`
	EntityID   string  `json:"entity_id"`
	EntityName string  `json:"entity_name,omitempty"`
	Details    string  `json:"details"`
	CreatedAt  string  `json:"created_at"`
}

type AuditService interface {
	ListLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) ListLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.repo.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]AuditLogResponse, 0, len(logs))
	for i := range logs {
		responses = append(responses, toAuditResponse(&logs[i]))
	}
	return responses, total, nil
}

func toAuditResponse(a *model.AuditLog) AuditLogResponse {
	resp := AuditLogResponse{
		ID:         a.ID.String(),
		Action:     a.Action,
		EntityID:   a.EntityID,
		EntityName: a.EntityName,
		Details:    a.Details,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
	if a.UserID != nil {
		id := a.UserID.String()
		resp.UserID = &id
	}
	if a.User != nil {
		resp.UserName = a.User.FullName
	}
	return resp
}
