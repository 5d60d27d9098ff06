package service

import (
	"context"
	"testing"
	"time"

	"procurement-backend/internal/model"
	"procurement-backend/pkg/apperror"

	"github.com/shopspring/decimal"
)

func (f *serviceFixture) activeTender(t *testing.T) TenderResponse {
	t.Helper()
	request := f.completedRequest(t)
	tender, err := f.tender.CreateTender(context.Background(), f.tenderDTO(t, request.ID))
	if err != nil {
		t.Fatalf("CreateTender failed: %v", err)
	}
	return tender
}

func (f *serviceFixture) orderDTO(t *testing.T, tenderID string) CreateOrderDTO {
	t.Helper()
	supplier := f.seedUser(t, "Supplier Co", model.RoleSupplier)
	return CreateOrderDTO{
		TenderID:     tenderID,
		UserID:       supplier.ID.String(),
		Quantity:     200,
		UnitPrice:    decimal.RequireFromString("45.50"),
		DeliveryDate: time.Now().Add(30 * 24 * time.Hour),
		DeliveryCost: decimal.RequireFromString("150.00"),
	}
}

func TestCreateOrderComputesTotal(t *testing.T) {
	f := newFixture(t)
	tender := f.activeTender(t)

	order, err := f.order.CreateOrder(context.Background(), f.orderDTO(t, tender.ID))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	// 200 * 45.50 + 150.00
	if want := decimal.RequireFromString("9250.00"); !order.TotalAmount.Equal(want) {
		t.Errorf("total = %s, want %s", order.TotalAmount, want)
	}
	if order.Status != model.OrderStatusApproved {
		t.Errorf("status = %q, want %q", order.Status, model.OrderStatusApproved)
	}
	if order.PaymentStatus != model.PaymentStatusUnpaid {
		t.Errorf("payment status = %q, want %q", order.PaymentStatus, model.PaymentStatusUnpaid)
	}
	if !order.AmountDue.Equal(order.TotalAmount) {
		t.Errorf("amount due = %s, want full total", order.AmountDue)
	}
}

func TestCreateOrderFreeDeliveryZeroesCost(t *testing.T) {
	f := newFixture(t)
	tender := f.activeTender(t)

	dto := f.orderDTO(t, tender.ID)
	dto.FreeDelivery = true
	order, err := f.order.CreateOrder(context.Background(), dto)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if !order.DeliveryCost.IsZero() {
		t.Errorf("delivery cost = %s, want 0 under free delivery", order.DeliveryCost)
	}
	if want := decimal.RequireFromString("9100.00"); !order.TotalAmount.Equal(want) {
		t.Errorf("total = %s, want %s", order.TotalAmount, want)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	tender := f.activeTender(t)
	ctx := context.Background()

	dto := f.orderDTO(t, tender.ID)
	dto.Quantity = 0
	if _, err := f.order.CreateOrder(ctx, dto); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("zero quantity: got %v, want validation error", err)
	}

	dto = f.orderDTO(t, tender.ID)
	dto.UnitPrice = decimal.Zero
	if _, err := f.order.CreateOrder(ctx, dto); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("zero unit price: got %v, want validation error", err)
	}
}

func TestCreateOrderOnClosedTenderConflicts(t *testing.T) {
	f := newFixture(t)
	tender := f.activeTender(t)

	// Roll the order service clock past the tender closing date.
	f.order.(*orderService).now = func() time.Time {
		return time.Now().Add(8 * 24 * time.Hour)
	}

	_, err := f.order.CreateOrder(context.Background(), f.orderDTO(t, tender.ID))
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("order on closed tender: got %v, want conflict", err)
	}
}

func TestRecordPaymentRollsStatusForward(t *testing.T) {
	f := newFixture(t)
	tender := f.activeTender(t)
	ctx := context.Background()

	order, err := f.order.CreateOrder(ctx, f.orderDTO(t, tender.ID))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	partial, err := f.order.RecordPayment(ctx, order.ID, decimal.RequireFromString("4000.00"))
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if partial.PaymentStatus != model.PaymentStatusPartial {
		t.Errorf("payment status = %q, want %q", partial.PaymentStatus, model.PaymentStatusPartial)
	}
	if want := decimal.RequireFromString("5250.00"); !partial.AmountDue.Equal(want) {
		t.Errorf("amount due = %s, want %s", partial.AmountDue, want)
	}

	paid, err := f.order.RecordPayment(ctx, order.ID, decimal.RequireFromString("5250.00"))
	if err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if paid.PaymentStatus != model.PaymentStatusPaid {
		t.Errorf("payment status = %q, want %q", paid.PaymentStatus, model.PaymentStatusPaid)
	}
	if !paid.AmountDue.IsZero() {
		t.Errorf("amount due = %s, want 0", paid.AmountDue)
	}
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	tender := f.activeTender(t)
	ctx := context.Background()

	order, err := f.order.CreateOrder(ctx, f.orderDTO(t, tender.ID))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if _, err := f.order.RecordPayment(ctx, order.ID, decimal.RequireFromString("10000.00")); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("overpayment: got %v, want validation error", err)
	}
	if _, err := f.order.RecordPayment(ctx, order.ID, decimal.Zero); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("zero payment: got %v, want validation error", err)
	}

	// Balance is untouched after the rejected attempts.
	got, err := f.order.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if !got.AmountPaid.IsZero() {
		t.Errorf("amount paid = %s, want 0", got.AmountPaid)
	}
}

func TestMarkDeliveredWithPayment(t *testing.T) {
	f := newFixture(t)
	tender := f.activeTender(t)
	ctx := context.Background()

	order, err := f.order.CreateOrder(ctx, f.orderDTO(t, tender.ID))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	delivered, err := f.order.MarkDelivered(ctx, order.ID, decimal.RequireFromString("9250.00"))
	if err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if delivered.Status != model.OrderStatusDelivered {
		t.Errorf("status = %q, want %q", delivered.Status, model.OrderStatusDelivered)
	}
	if delivered.PaymentStatus != model.PaymentStatusPaid {
		t.Errorf("payment status = %q, want %q", delivered.PaymentStatus, model.PaymentStatusPaid)
	}
}

func TestMarkCompletedIsTerminal(t *testing.T) {
	f := newFixture(t)
	tender := f.activeTender(t)
	ctx := context.Background()

	order, err := f.order.CreateOrder(ctx, f.orderDTO(t, tender.ID))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	completed, err := f.order.MarkCompleted(ctx, order.ID)
	if err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}
	if completed.Status != model.OrderStatusCompleted {
		t.Errorf("status = %q, want %q", completed.Status, model.OrderStatusCompleted)
	}

	if _, err := f.order.MarkCompleted(ctx, order.ID); !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("double completion: got %v, want conflict", err)
	}
	if _, err := f.order.RecordPayment(ctx, order.ID, decimal.NewFromInt(10)); !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("payment on completed order: got %v, want conflict", err)
	}
	if _, err := f.order.MarkDelivered(ctx, order.ID, decimal.Zero); !apperror.IsKind(err, apperror.KindConflict) {
		t.Errorf("delivery on completed order: got %v, want conflict", err)
	}
}

func TestListOrdersByTenderAndStatus(t *testing.T) {
	f := newFixture(t)
	tender := f.activeTender(t)
	ctx := context.Background()

	first, err := f.order.CreateOrder(ctx, f.orderDTO(t, tender.ID))
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if _, err := f.order.CreateOrder(ctx, f.orderDTO(t, tender.ID)); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if _, err := f.order.MarkDelivered(ctx, first.ID, decimal.Zero); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}

	byTender, err := f.order.ListOrdersByTender(ctx, tender.ID)
	if err != nil {
		t.Fatalf("ListOrdersByTender failed: %v", err)
	}
	if len(byTender) != 2 {
		t.Errorf("orders by tender = %d, want 2", len(byTender))
	}

	delivered, err := f.order.ListOrdersByStatus(ctx, model.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("ListOrdersByStatus failed: %v", err)
	}
	if len(delivered) != 1 || delivered[0].ID != first.ID {
		t.Errorf("delivered list should hold exactly the delivered order, got %d entries", len(delivered))
	}

	if _, err := f.order.ListOrdersByStatus(ctx, "shipped"); !apperror.IsKind(err, apperror.KindValidation) {
		t.Errorf("bogus status: got %v, want validation error", err)
	}
}
