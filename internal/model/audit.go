package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateRequest = "CREATE_REQUEST"
	ActionApproveStage  = "APPROVE_STAGE"
	ActionRejectStage   = "REJECT_STAGE"
	ActionDeleteRequest = "DELETE_REQUEST"
	ActionCreateTender  = "CREATE_TENDER"
	ActionUpdateTender  = "UPDATE_TENDER"
	ActionDeleteTender  = "DELETE_TENDER"
	ActionCreateOrder   = "CREATE_ORDER"
	ActionRecordPayment = "RECORD_PAYMENT"
	ActionMarkDelivered = "MARK_DELIVERED"
	ActionCompleteOrder = "COMPLETE_ORDER"
	ActionApproveUser   = "APPROVE_USER"
)

// AuditLog tracks Who, What, and When for workflow mutations. Rows are
// written inside the same transaction as the mutation they describe.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:text" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
