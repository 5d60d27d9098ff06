package repository

import (
	"context"

	"procurement-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context) ([]model.Order, error)
	ListByStatus(ctx context.Context, status string) ([]model.Order, error)
	ListByTender(ctx context.Context, tenderID uuid.UUID) ([]model.Order, error)
	Update(ctx context.Context, order *model.Order) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func withOrderRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Tender").Preload("Supplier")
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := withOrderRelations(GetDB(ctx, r.db)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := withOrderRelations(GetDB(ctx, r.db)).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) ListByStatus(ctx context.Context, status string) ([]model.Order, error) {
	var orders []model.Order
	if err := withOrderRelations(GetDB(ctx, r.db)).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) ListByTender(ctx context.Context, tenderID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	if err := withOrderRelations(GetDB(ctx, r.db)).
		Where("tender_id = ?", tenderID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Save(order).Error
}
