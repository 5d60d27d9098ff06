package repository

import (
	"context"
	"fmt"

	"procurement-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestRepository defines data access for procurement requests. Role views
// go through the same preload helper so every returned request carries the
// requester and all recorded approver profiles.
type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	FindByIDWithApprovers(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context) ([]model.Request, error)
	ListByRequester(ctx context.Context, userID uuid.UUID) ([]model.Request, error)
	ListPendingAtStage(ctx context.Context, stage string) ([]model.Request, error)
	ListApprovedAtStageBy(ctx context.Context, stage string, userID uuid.UUID) ([]model.Request, error)
	ListRejectedAtStageBy(ctx context.Context, stage string, userID uuid.UUID) ([]model.Request, error)
	AdvanceStage(ctx context.Context, id uuid.UUID, fromStage string, updates map[string]interface{}) (int64, error)
	SetCurrentStage(ctx context.Context, id uuid.UUID, stage string) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

// withApprovers is the single populate helper used by every read path.
func withApprovers(db *gorm.DB) *gorm.DB {
	return db.
		Preload("RequestedUser").
		Preload("HODUser").
		Preload("LogisticsUser").
		Preload("WarehouseUser").
		Preload("RectorUser").
		Preload("ProcurementUser")
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDWithApprovers(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := withApprovers(GetDB(ctx, r.db)).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context) ([]model.Request, error) {
	var requests []model.Request
	if err := withApprovers(GetDB(ctx, r.db)).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListByRequester(ctx context.Context, userID uuid.UUID) ([]model.Request, error) {
	var requests []model.Request
	if err := withApprovers(GetDB(ctx, r.db)).
		Where("requested_user_id = ?", userID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListPendingAtStage(ctx context.Context, stage string) ([]model.Request, error) {
	var requests []model.Request
	if err := withApprovers(GetDB(ctx, r.db)).
		Where("status = ? AND current_stage = ?", model.RequestStatusPending, stage).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListApprovedAtStageBy(ctx context.Context, stage string, userID uuid.UUID) ([]model.Request, error) {
	prefix, ok := model.StageColumnPrefix(stage)
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}

	var requests []model.Request
	if err := withApprovers(GetDB(ctx, r.db)).
		Where(fmt.Sprintf("%s_approved = ? AND %s_user_id = ?", prefix, prefix), true, userID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *requestRepository) ListRejectedAtStageBy(ctx context.Context, stage string, userID uuid.UUID) ([]model.Request, error) {
	prefix, ok := model.StageColumnPrefix(stage)
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}

	var requests []model.Request
	if err := withApprovers(GetDB(ctx, r.db)).
		Where("status = ? AND rejected_stage = ?", model.RequestStatusRejected, stage).
		Where(fmt.Sprintf("%s_user_id = ?", prefix), userID).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// AdvanceStage performs the compare-and-swap stage transition: the update
// applies only while the request is still pending at fromStage, so a racing
// second approver changes zero rows. Returns the affected row count.
func (r *requestRepository) AdvanceStage(ctx context.Context, id uuid.UUID, fromStage string, updates map[string]interface{}) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND status = ? AND current_stage = ?", id, model.RequestStatusPending, fromStage).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// SetCurrentStage applies the legacy manual stage override. Only live
// requests can be moved.
func (r *requestRepository) SetCurrentStage(ctx context.Context, id uuid.UUID, stage string) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND status = ?", id, model.RequestStatusPending).
		Update("current_stage", stage)
	return res.RowsAffected, res.Error
}

func (r *requestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Request{}).Error
}
