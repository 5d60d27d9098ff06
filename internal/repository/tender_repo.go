package repository

import (
	"context"
	"time"

	"procurement-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TenderRepository interface {
	Create(ctx context.Context, tender *model.Tender) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Tender, error)
	FindByRequestID(ctx context.Context, requestID uuid.UUID) (*model.Tender, error)
	List(ctx context.Context) ([]model.Tender, error)
	ListByEffectiveStatus(ctx context.Context, status string, now time.Time) ([]model.Tender, error)
	ListWithOrders(ctx context.Context) ([]model.Tender, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, tender *model.Tender) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type tenderRepository struct {
	db *gorm.DB
}

func NewTenderRepository(db *gorm.DB) TenderRepository {
	return &tenderRepository{db: db}
}

// withTenderRelations populates the originating request and the creator.
func withTenderRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Request").Preload("Request.RequestedUser").Preload("Creator")
}

func (r *tenderRepository) Create(ctx context.Context, tender *model.Tender) error {
	return GetDB(ctx, r.db).Create(tender).Error
}

func (r *tenderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Tender, error) {
	var tender model.Tender
	if err := withTenderRelations(GetDB(ctx, r.db)).First(&tender, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tender, nil
}

func (r *tenderRepository) FindByRequestID(ctx context.Context, requestID uuid.UUID) (*model.Tender, error) {
	var tender model.Tender
	if err := GetDB(ctx, r.db).First(&tender, "request_id = ?", requestID).Error; err != nil {
		return nil, err
	}
	return &tender, nil
}

func (r *tenderRepository) List(ctx context.Context) ([]model.Tender, error) {
	var tenders []model.Tender
	if err := withTenderRelations(GetDB(ctx, r.db)).
		Order("created_at DESC").
		Find(&tenders).Error; err != nil {
		return nil, err
	}
	return tenders, nil
}

// ListByEffectiveStatus filters by status with closure computed against now:
// an "active" tender must not have passed its closing date, and a tender past
// closing counts as closed even if the stored column still says active.
func (r *tenderRepository) ListByEffectiveStatus(ctx context.Context, status string, now time.Time) ([]model.Tender, error) {
	db := withTenderRelations(GetDB(ctx, r.db))
	switch status {
	case model.TenderStatusActive:
		db = db.Where("status = ? AND closing_date > ?", model.TenderStatusActive, now)
	case model.TenderStatusClosed:
		db = db.Where("status = ? OR closing_date <= ?", model.TenderStatusClosed, now)
	default:
		db = db.Where("status = ?", status)
	}

	var tenders []model.Tender
	if err := db.Order("created_at DESC").Find(&tenders).Error; err != nil {
		return nil, err
	}
	return tenders, nil
}

func (r *tenderRepository) ListWithOrders(ctx context.Context) ([]model.Tender, error) {
	var tenders []model.Tender
	if err := withTenderRelations(GetDB(ctx, r.db)).
		Preload("Orders").
		Preload("Orders.Supplier").
		Order("created_at DESC").
		Find(&tenders).Error; err != nil {
		return nil, err
	}
	return tenders, nil
}

func (r *tenderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Tender{}).Count(&count).Error
	return count, err
}

func (r *tenderRepository) Update(ctx context.Context, tender *model.Tender) error {
	return GetDB(ctx, r.db).Save(tender).Error
}

func (r *tenderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Tender{}).Error
}
