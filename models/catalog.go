package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Menu represents a named menu (e.g. lunch, dinner, seasonal)
type Menu struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Menu model
func (Menu) TableName() string {
	return "menus"
}

// Category groups menu items (appetizers, mains, drinks, ...)
type Category struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"uniqueIndex;not null" json:"name"`
	Description  string         `gorm:"type:text" json:"description"`
	DisplayOrder int            `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Category model
func (Category) TableName() string {
	return "categories"
}

// MenuItem represents a single dish or drink on a menu.
// An item belongs to exactly one category and one menu; the category and
// menu cannot be deleted while items still reference them.
type MenuItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	Category    Category        `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category"`
	MenuID      uint            `gorm:"not null;index" json:"menu_id"`
	Menu        Menu            `gorm:"foreignKey:MenuID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	IsAvailable bool            `gorm:"not null;default:true" json:"is_available"`
	ImageS3Key  *string         `json:"image_s3_key,omitempty"`       // nullable, S3 key for the item photo
	ImageURL    *string         `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL for the photo
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the MenuItem model
func (MenuItem) TableName() string {
	return "menu_items"
}
