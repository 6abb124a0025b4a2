package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles. Everything except RoleCustomer is a staff role.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleChef     = "chef"
	RoleWaiter   = "waiter"
)

// User account statuses
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// User represents a user in the system (customer or staff member)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string         `json:"phone"`
	Role      string         `gorm:"not null;default:'customer'" json:"role"`   // customer, admin, manager, chef, waiter
	Status    string         `gorm:"not null;default:'active'" json:"status"`   // active, inactive, suspended
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsStaff reports whether the user holds any staff role
func (u *User) IsStaff() bool {
	switch u.Role {
	case RoleAdmin, RoleManager, RoleChef, RoleWaiter:
		return true
	}
	return false
}

// IsActive reports whether the account may perform operations at all
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// ValidRole reports whether role is one of the known role values
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleAdmin, RoleManager, RoleChef, RoleWaiter:
		return true
	}
	return false
}

// ValidUserStatus reports whether status is one of the known account statuses
func ValidUserStatus(status string) bool {
	switch status {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}
