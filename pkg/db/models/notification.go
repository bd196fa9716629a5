package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/pkg/enums"
)

// Notification stores in-app notifications for admins, stores and customers.
type Notification struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RecipientRole enums.ActorRole        `gorm:"column:recipient_role;type:text;not null" json:"recipient_role"`
	StoreID       *uuid.UUID             `gorm:"column:store_id;type:uuid" json:"store_id,omitempty"`
	CustomerPhone *string                `gorm:"column:customer_phone;type:text" json:"customer_phone,omitempty"`
	OrderID       *uuid.UUID             `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	Type          enums.NotificationType `gorm:"type:notification_type;not null" json:"type"`
	Title         string                 `gorm:"type:text;not null" json:"title"`
	Message       string                 `gorm:"type:text;not null" json:"message"`
	Link          *string                `gorm:"type:text" json:"link,omitempty"`
	ReadAt        *time.Time             `gorm:"type:timestamptz" json:"read_at,omitempty"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
