package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus constants. Completed is terminal.
const (
	OrderStatusApproved  = "approved"
	OrderStatusDelivered = "delivered"
	OrderStatusCompleted = "completed"
)

// PaymentStatus constants, derived from AmountPaid vs TotalAmount.
const (
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPartial = "partial"
	PaymentStatusPaid    = "paid"
)

// Order is a supplier's committed fulfillment against a Tender with its own
// payment and delivery sub-lifecycle. AmountPaid never exceeds TotalAmount.
type Order struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenderID uuid.UUID `gorm:"type:uuid;not null;index" json:"tender_id"`
	Tender   *Tender   `gorm:"foreignKey:TenderID" json:"tender,omitempty"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"` // supplier
	Supplier *User     `gorm:"foreignKey:UserID" json:"supplier,omitempty"`

	Quantity     int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	DeliveryDate time.Time       `gorm:"not null" json:"delivery_date"`
	FreeDelivery bool            `gorm:"not null;default:false" json:"free_delivery"`
	DeliveryCost decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"delivery_cost"`

	AmountPaid    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount_paid"`
	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	Status        string          `gorm:"type:varchar(20);not null;default:'approved';index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = OrderStatusApproved
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentStatusUnpaid
	}
	return nil
}

// AmountDue returns the outstanding balance.
func (o *Order) AmountDue() decimal.Decimal {
	return o.TotalAmount.Sub(o.AmountPaid)
}

// DerivePaymentStatus computes the payment sub-state from the amounts.
func (o *Order) DerivePaymentStatus() string {
	switch {
	case o.AmountPaid.IsZero():
		return PaymentStatusUnpaid
	case o.AmountPaid.GreaterThanOrEqual(o.TotalAmount):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartial
	}
}
