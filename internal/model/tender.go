package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenderStatus constants
const (
	TenderStatusActive = "active"
	TenderStatusClosed = "closed"
)

// Tender is a public procurement solicitation derived from exactly one fully
// approved Request. There is no scheduled closing job; closure past
// ClosingDate is computed at read time via EffectiveStatus.
type Tender struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	Location     string    `gorm:"type:varchar(255);not null" json:"location"`
	Category     string    `gorm:"type:varchar(100);not null" json:"category"`
	ReferenceNo  string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"reference_no"`
	StartingDate time.Time `gorm:"not null" json:"starting_date"`
	ClosingDate  time.Time `gorm:"not null" json:"closing_date"`
	Details      string    `gorm:"type:text;not null" json:"details"`

	RequestID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"request_id"`
	Request   *Request  `gorm:"foreignKey:RequestID" json:"request,omitempty"`

	Status    string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	Creator   *User     `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`

	Orders []Order `gorm:"foreignKey:TenderID" json:"orders,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Tender) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TenderStatusActive
	}
	return nil
}

// EffectiveStatus reports closed once the closing date has passed, regardless
// of the stored value.
func (t *Tender) EffectiveStatus(now time.Time) string {
	if t.Status == TenderStatusClosed || now.After(t.ClosingDate) {
		return TenderStatusClosed
	}
	return t.Status
}
