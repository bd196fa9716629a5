package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineItem is a persisted item row of a division, stamped with its store.
type OrderLineItem struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID        `gorm:"column:order_id;type:uuid;not null"`
	ProductName     string           `gorm:"column:product_name;not null"`
	Quantity        int              `gorm:"column:quantity;not null"`
	UnitPrice       decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	DiscountedPrice *decimal.Decimal `gorm:"column:discounted_price;type:numeric(12,2)"`
	TotalPrice      decimal.Decimal  `gorm:"column:total_price;type:numeric(12,2);not null"`
	StoreName       string           `gorm:"column:store_name;not null"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
