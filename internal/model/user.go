package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles outside the approval chain. The five stage names in request.go are
// also user roles.
const (
	RoleSupplier   = "Supplier"
	RoleSuperAdmin = "Super Admin"
)

// ValidRoles lists every role a user may register with.
func ValidRoles() []string {
	return append(Stages(), RoleSupplier, RoleSuperAdmin)
}

// IsValidRole reports whether role is a known user role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// User represents an identity in the procurement system. Accounts are created
// inactive and must be activated by a Super Admin before login succeeds.
// Role is immutable after creation.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Email    string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password string    `gorm:"type:varchar(255);not null" json:"-"`
	Role     string    `gorm:"type:varchar(50);not null" json:"role"`

	// Role-specific profile attributes
	Department  string `gorm:"type:varchar(100)" json:"department,omitempty"`   // approver roles
	CompanyName string `gorm:"type:varchar(255)" json:"company_name,omitempty"` // suppliers

	IsActive  bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
