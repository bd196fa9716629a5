package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/types"
)

// Order is either a customer's original order or one per-store division of it.
// Divisions carry OriginalOrderID and the split marker in Details.
type Order struct {
	ID                  uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderCode           *string                    `gorm:"column:order_code"`
	CustomerName        *string                    `gorm:"column:customer_name"`
	CustomerPhone       *string                    `gorm:"column:customer_phone"`
	CustomerAddress     *string                    `gorm:"column:customer_address"`
	CustomerNotes       *string                    `gorm:"column:customer_notes"`
	Items               types.OrderItems           `gorm:"column:items;type:jsonb;serializer:json"`
	TotalAmount         decimal.Decimal            `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Subtotal            decimal.Decimal            `gorm:"column:subtotal;type:numeric(12,2);not null"`
	OrderStatus         enums.OrderStatus          `gorm:"column:order_status;type:order_status;not null;default:'pending'"`
	AssignedStoreID     *uuid.UUID                 `gorm:"column:assigned_store_id;type:uuid"`
	MainStoreName       *string                    `gorm:"column:main_store_name"`
	StoreResponseStatus *enums.StoreResponseStatus `gorm:"column:store_response_status;type:store_response_status"`
	RejectionReason     *string                    `gorm:"column:rejection_reason"`
	ReturnReason        *string                    `gorm:"column:return_reason"`
	Details             *string                    `gorm:"column:details"`
	OriginalOrderID     *uuid.UUID                 `gorm:"column:original_order_id;type:uuid"`
	StoreResponseAt     *time.Time                 `gorm:"column:store_response_at"`
	CompletedAt         *time.Time                 `gorm:"column:completed_at"`
	LineItems           []OrderLineItem            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// DetailsText returns Details or "" when unset.
func (o *Order) DetailsText() string {
	if o == nil || o.Details == nil {
		return ""
	}
	return *o.Details
}

// ResponseStatus returns the store response or "" when unset.
func (o *Order) ResponseStatus() enums.StoreResponseStatus {
	if o == nil || o.StoreResponseStatus == nil {
		return ""
	}
	return *o.StoreResponseStatus
}

// StoreName returns MainStoreName or "" when unset.
func (o *Order) StoreName() string {
	if o == nil || o.MainStoreName == nil {
		return ""
	}
	return *o.MainStoreName
}

// Reference is the token used in the split marker: the order code when set,
// otherwise the id.
func (o *Order) Reference() string {
	if o.OrderCode != nil && *o.OrderCode != "" {
		return *o.OrderCode
	}
	return o.ID.String()
}
