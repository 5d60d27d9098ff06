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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateOrderDTO struct {
	TenderID     string          `json:"tender_id" binding:"required"`
	UserID       string          `json:"user_id" binding:"required"`
	Quantity     int             `json:"quantity" binding:"required"`
	UnitPrice    decimal.Decimal `json:"unit_price" binding:"required"`
	DeliveryDate time.Time       `json:"delivery_date" binding:"required"`
	FreeDelivery bool            `json:"free_delivery"`
	DeliveryCost decimal.Decimal `json:"delivery_cost"`
}

type PaymentDTO struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

type OrderResponse struct {
	ID            string          `json:"id"`
	TenderID      string          `json:"tender_id"`
	TenderTitle   string          `json:"tender_title,omitempty"`
	UserID        string          `json:"user_id"`
	Supplier      *UserSummary    `json:"supplier,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DeliveryDate  string          `json:"delivery_date"`
	FreeDelivery  bool            `json:"free_delivery"`
	DeliveryCost  decimal.Decimal `json:"delivery_cost"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	PaymentStatus string          `json:"payment_status"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
}

// --- Interface ---

// OrderService owns the supplier order sub-lifecycle. Orders never touch the
// originating request; their only upstream link is the tender.
type OrderService interface {
	CreateOrder(ctx context.Context, req CreateOrderDTO) (OrderResponse, error)
	GetOrder(ctx context.Context, id string) (OrderResponse, error)
	ListOrders(ctx context.Context) ([]OrderResponse, error)
	ListOrdersByStatus(ctx context.Context, status string) ([]OrderResponse, error)
	ListOrdersByTender(ctx context.Context, tenderID string) ([]OrderResponse, error)
	MarkDelivered(ctx context.Context, id string, payment decimal.Decimal) (OrderResponse, error)
	RecordPayment(ctx context.Context, id string, payment decimal.Decimal) (OrderResponse, error)
	MarkCompleted(ctx context.Context, id string) (OrderResponse, error)
}

type orderService struct {
	orders  repository.OrderRepository
	tenders repository.TenderRepository
	audits  repository.AuditRepository
	txm     repository.TransactionManager
	now     func() time.Time
}

func NewOrderService(orders repository.OrderRepository, tenders repository.TenderRepository, audits repository.AuditRepository, txm repository.TransactionManager) OrderService {
	return &orderService{orders: orders, tenders: tenders, audits: audits, txm: txm, now: time.Now}
}

// --- Implementation ---

// CreateOrder places a supplier order against an active tender.
func (s *orderService) CreateOrder(ctx context.Context, req CreateOrderDTO) (OrderResponse, error) {
	tenderID, err := uuid.Parse(req.TenderID)
	if err != nil {
		return OrderResponse{}, apperror.Validation("invalid tender_id")
	}
	supplierID, err := uuid.Parse(req.UserID)
	if err != nil {
		return OrderResponse{}, apperror.Validation("invalid user_id")
	}
	if req.Quantity <= 0 {
		return OrderResponse{}, apperror.Validation("quantity must be positive")
	}
	if req.UnitPrice.LessThanOrEqual(decimal.Zero) {
		return OrderResponse{}, apperror.Validation("unit price must be positive")
	}
	if req.DeliveryCost.IsNegative() {
		return OrderResponse{}, apperror.Validation("delivery cost cannot be negative")
	}

	tender, err := s.tenders.FindByID(ctx, tenderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return OrderResponse{}, apperror.NotFound("no tender found with id %s", req.TenderID)
	}
	if err != nil {
		return OrderResponse{}, err
	}
	if tender.EffectiveStatus(s.now()) != model.TenderStatusActive {
		return OrderResponse{}, apperror.Conflict("tender %s is closed", tender.ReferenceNo)
	}

	total := req.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
	deliveryCost := req.DeliveryCost
	if req.FreeDelivery {
		deliveryCost = decimal.Zero
	} else {
		total = total.Add(deliveryCost)
	}

	order := &model.Order{
		TenderID:      tenderID,
		UserID:        supplierID,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		TotalAmount:   total,
		DeliveryDate:  req.DeliveryDate,
		FreeDelivery:  req.FreeDelivery,
		DeliveryCost:  deliveryCost,
		AmountPaid:    decimal.Zero,
		PaymentStatus: model.PaymentStatusUnpaid,
		Status:        model.OrderStatusApproved,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.orders.Create(txCtx, order); createErr != nil {
			return createErr
		}
		details, _ := json.Marshal(map[string]interface{}{
			"tender_id": tenderID.String(),
			"total":     total.StringFixed(2),
		})
		return s.audits.Create(txCtx, &model.AuditLog{
			UserID:   &supplierID,
			Action:   model.ActionCreateOrder,
			EntityID: order.ID.String(),
			Details:  string(details),
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	full, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return OrderResponse{}, err
	}
	return toOrderResponse(full), nil
}

func (s *orderService) GetOrder(ctx context.Context, id string) (OrderResponse, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return OrderResponse{}, err
	}
	return toOrderResponse(order), nil
}

func (s *orderService) ListOrders(ctx context.Context) ([]OrderResponse, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}
	return toOrderResponses(orders), nil
}

func (s *orderService) ListOrdersByStatus(ctx context.Context, status string) ([]OrderResponse, error) {
	if status != model.OrderStatusApproved && status != model.OrderStatusDelivered && status != model.OrderStatusCompleted {
		return nil, apperror.Validation("invalid order status %q", status)
	}

	orders, err := s.orders.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	return toOrderResponses(orders), nil
}

func (s *orderService) ListOrdersByTender(ctx context.Context, tenderID string) ([]OrderResponse, error) {
	id, err := uuid.Parse(tenderID)
	if err != nil {
		return nil, apperror.Validation("invalid tender id")
	}

	orders, err := s.orders.ListByTender(ctx, id)
	if err != nil {
		return nil, err
	}
	return toOrderResponses(orders), nil
}

// MarkDelivered records delivery together with an optional payment received
// on delivery.
func (s *orderService) MarkDelivered(ctx context.Context, id string, payment decimal.Decimal) (OrderResponse, error) {
	return s.mutateOrder(ctx, id, model.ActionMarkDelivered, func(order *model.Order) error {
		if order.Status == model.OrderStatusCompleted {
			return apperror.Conflict("order is already completed")
		}
		if !payment.IsZero() {
			if err := applyPayment(order, payment); err != nil {
				return err
			}
		}
		order.Status = model.OrderStatusDelivered
		return nil
	})
}

// RecordPayment applies a payment against the outstanding balance.
// Overpayment is rejected so amount due never goes negative.
func (s *orderService) RecordPayment(ctx context.Context, id string, payment decimal.Decimal) (OrderResponse, error) {
	return s.mutateOrder(ctx, id, model.ActionRecordPayment, func(order *model.Order) error {
		if order.Status == model.OrderStatusCompleted {
			return apperror.Conflict("order is already completed")
		}
		return applyPayment(order, payment)
	})
}

// MarkCompleted closes out an order. Completed is terminal.
func (s *orderService) MarkCompleted(ctx context.Context, id string) (OrderResponse, error) {
	return s.mutateOrder(ctx, id, model.ActionCompleteOrder, func(order *model.Order) error {
		if order.Status == model.OrderStatusCompleted {
			return apperror.Conflict("order is already completed")
		}
		order.Status = model.OrderStatusCompleted
		return nil
	})
}

// --- Helpers ---

func applyPayment(order *model.Order, payment decimal.Decimal) error {
	if payment.LessThanOrEqual(decimal.Zero) {
		return apperror.Validation("payment amount must be positive")
	}
	if payment.GreaterThan(order.AmountDue()) {
		return apperror.Validation("payment %s exceeds amount due %s", payment.StringFixed(2), order.AmountDue().StringFixed(2))
	}
	order.AmountPaid = order.AmountPaid.Add(payment)
	order.PaymentStatus = order.DerivePaymentStatus()
	return nil
}

func (s *orderService) findOrder(ctx context.Context, id string) (*model.Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid order id")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("no order found with id %s", id)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) mutateOrder(ctx context.Context, id, action string, mutate func(*model.Order) error) (OrderResponse, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return OrderResponse{}, err
	}

	if err := mutate(order); err != nil {
		return OrderResponse{}, err
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if saveErr := s.orders.Update(txCtx, order); saveErr != nil {
			return saveErr
		}
		details, _ := json.Marshal(map[string]interface{}{
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
			"amount_paid":    order.AmountPaid.StringFixed(2),
		})
		return s.audits.Create(txCtx, &model.AuditLog{
			Action:   action,
			EntityID: order.ID.String(),
			Details:  string(details),
		})
	})
	if err != nil {
		return OrderResponse{}, err
	}

	return toOrderResponse(order), nil
}

func toOrderResponse(o *model.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID.String(),
		TenderID:      o.TenderID.String(),
		UserID:        o.UserID.String(),
		Supplier:      toUserSummary(o.Supplier),
		Quantity:      o.Quantity,
		UnitPrice:     o.UnitPrice,
		TotalAmount:   o.TotalAmount,
		DeliveryDate:  o.DeliveryDate.Format(time.RFC3339),
		FreeDelivery:  o.FreeDelivery,
		DeliveryCost:  o.DeliveryCost,
		AmountPaid:    o.AmountPaid,
		AmountDue:     o.AmountDue(),
		PaymentStatus: o.PaymentStatus,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
	if o.Tender != nil {
		resp.TenderTitle = o.Tender.Title
	}
	return resp
}

func toOrderResponses(orders []model.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}
