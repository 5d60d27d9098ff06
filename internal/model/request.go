package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Approval stages in processing order. These double as the role names of the
// users allowed to act at each stage.
const (
	StageHOD         = "HOD"
	StageLogistics   = "Logistics Officer"
	StageWarehouse   = "Warehouse Officer"
	StageRector      = "Rector"
	StageProcurement = "Procurement Officer"
)

// RequestStatus constants
const (
	RequestStatusPending   = "pending"
	RequestStatusRejected  = "rejected"
	RequestStatusCompleted = "completed"
)

// stageOrder is the single source of truth for the approval sequence.
var stageOrder = []string{StageHOD, StageLogistics, StageWarehouse, StageRector, StageProcurement}

// Stages returns the approval sequence in processing order.
func Stages() []string {
	out := make([]string, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// IsValidStage reports whether name is one of the five approval stages.
func IsValidStage(name string) bool {
	for _, s := range stageOrder {
		if s == name {
			return true
		}
	}
	return false
}

// NextStage returns the stage that follows current. ok is false at the final
// stage, meaning the request becomes eligible for tender creation.
func NextStage(current string) (next string, ok bool) {
	for i, s := range stageOrder {
		if s == current {
			if i+1 < len(stageOrder) {
				return stageOrder[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

// RejectedLabel builds the legacy display label for a request rejected at stage.
func RejectedLabel(stage string) string {
	return "Rejected " + stage
}

// Request is the central procurement entity. Workflow state is kept in three
// orthogonal fields (Status, CurrentStage, RejectedStage) rather than one
// overloaded stage string; each stage additionally records who acted and when.
// A stage's Approved column is nil until the stage is reached, true on
// approval, false on rejection. At most one stage may hold false.
type Request struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Category            string    `gorm:"type:varchar(100);not null" json:"category"`
	SubCategory         string    `gorm:"type:varchar(100);not null" json:"sub_category"`
	Title               string    `gorm:"type:varchar(255);not null" json:"title"`
	Reason              string    `gorm:"type:text;not null" json:"reason"`
	ColorPickup         string    `gorm:"type:varchar(100)" json:"color_pickup"`
	CurrentItemCount    int       `gorm:"type:int;not null" json:"current_item_count"`
	DamagedItemCount    int       `gorm:"type:int;not null" json:"damaged_item_count"`
	NewItemRequestCount int       `gorm:"type:int;not null" json:"new_item_request_count"`
	Note                string    `gorm:"type:text" json:"note"`

	RequestedUserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"requested_user_id"`
	RequestedUser     *User     `gorm:"foreignKey:RequestedUserID" json:"requested_user,omitempty"`
	RequestedUserRole string    `gorm:"type:varchar(50);not null" json:"requested_user_role"`

	Status        string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CurrentStage  string `gorm:"type:varchar(50);index" json:"current_stage"`  // owner while pending, empty once terminal
	RejectedStage string `gorm:"type:varchar(50);index" json:"rejected_stage"` // set only when Status is rejected

	HODApproved         *bool      `json:"hod_approved"`
	HODUserID           *uuid.UUID `gorm:"type:uuid;index" json:"hod_user_id"`
	HODUser             *User      `gorm:"foreignKey:HODUserID" json:"hod_user,omitempty"`
	HODActedAt          *time.Time `json:"hod_acted_at"`
	LogisticsApproved   *bool      `json:"logistics_approved"`
	LogisticsUserID     *uuid.UUID `gorm:"type:uuid;index" json:"logistics_user_id"`
	LogisticsUser       *User      `gorm:"foreignKey:LogisticsUserID" json:"logistics_user,omitempty"`
	LogisticsActedAt    *time.Time `json:"logistics_acted_at"`
	WarehouseApproved   *bool      `json:"warehouse_approved"`
	WarehouseUserID     *uuid.UUID `gorm:"type:uuid;index" json:"warehouse_user_id"`
	WarehouseUser       *User      `gorm:"foreignKey:WarehouseUserID" json:"warehouse_user,omitempty"`
	WarehouseActedAt    *time.Time `json:"warehouse_acted_at"`
	RectorApproved      *bool      `json:"rector_approved"`
	RectorUserID        *uuid.UUID `gorm:"type:uuid;index" json:"rector_user_id"`
	RectorUser          *User      `gorm:"foreignKey:RectorUserID" json:"rector_user,omitempty"`
	RectorActedAt       *time.Time `json:"rector_acted_at"`
	ProcurementApproved *bool      `json:"procurement_approved"`
	ProcurementUserID   *uuid.UUID `gorm:"type:uuid;index" json:"procurement_user_id"`
	ProcurementUser     *User      `gorm:"foreignKey:ProcurementUserID" json:"procurement_user,omitempty"`
	ProcurementActedAt  *time.Time `json:"procurement_acted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate populates the primary key so the sqlite test driver works
// without a server-side uuid default.
func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = RequestStatusPending
	}
	return nil
}

// StageColumnPrefix maps a stage name to its column prefix on requests.
// The bool result is false for unknown stage names.
func StageColumnPrefix(stage string) (string, bool) {
	switch stage {
	case StageHOD:
		return "hod", true
	case StageLogistics:
		return "logistics", true
	case StageWarehouse:
		return "warehouse", true
	case StageRector:
		return "rector", true
	case StageProcurement:
		return "procurement", true
	default:
		return "", false
	}
}

// StageGroup returns the approval triple recorded for a stage.
func (r *Request) StageGroup(stage string) (approved *bool, userID *uuid.UUID, actedAt *time.Time) {
	switch stage {
	case StageHOD:
		return r.HODApproved, r.HODUserID, r.HODActedAt
	case StageLogistics:
		return r.LogisticsApproved, r.LogisticsUserID, r.LogisticsActedAt
	case StageWarehouse:
		return r.WarehouseApproved, r.WarehouseUserID, r.WarehouseActedAt
	case StageRector:
		return r.RectorApproved, r.RectorUserID, r.RectorActedAt
	case StageProcurement:
		return r.ProcurementApproved, r.ProcurementUserID, r.ProcurementActedAt
	}
	return nil, nil, nil
}

// StageUser returns the preloaded approver profile for a stage, if any.
func (r *Request) StageUser(stage string) *User {
	switch stage {
	case StageHOD:
		return r.HODUser
	case StageLogistics:
		return r.LogisticsUser
	case StageWarehouse:
		return r.WarehouseUser
	case StageRector:
		return r.RectorUser
	case StageProcurement:
		return r.ProcurementUser
	}
	return nil
}

// IsTerminal reports whether the request accepts no further stage transitions.
func (r *Request) IsTerminal() bool {
	return r.Status != RequestStatusPending
}

// StageLabel derives the legacy single-string stage field exposed on the wire:
// the owning stage while pending, "Rejected <stage>" after a rejection, and
// "Completed" once procurement has approved.
func (r *Request) StageLabel() string {
	switch r.Status {
	case RequestStatusRejected:
		return RejectedLabel(r.RejectedStage)
	case RequestStatusCompleted:
		return "Completed"
	default:
		return r.CurrentStage
	}
}
