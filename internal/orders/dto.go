package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storeorders/internal/divisions"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/types"
)

// ListFilters describe the inputs supported by the orders list.
type ListFilters struct {
	StoreID        *uuid.UUID
	Status         *enums.OrderStatus
	ResponseStatus *enums.StoreResponseStatus
	CustomerPhone  string
	DivisionsOnly  bool
}

// LineItemDTO is one persisted line of an order.
type LineItemDTO struct {
	ID              uuid.UUID        `json:"id"`
	ProductName     string           `json:"product_name"`
	Quantity        int              `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty"`
	TotalPrice      decimal.Decimal  `json:"total_price"`
	StoreName       string           `json:"store_name"`
}

// OrderDTO is the API representation of an original or division order.
type OrderDTO struct {
	ID                  uuid.UUID                  `json:"id"`
	OrderCode           *string                    `json:"order_code,omitempty"`
	CustomerName        *string                    `json:"customer_name,omitempty"`
	CustomerPhone       *string                    `json:"customer_phone,omitempty"`
	CustomerAddress     *string                    `json:"customer_address,omitempty"`
	CustomerNotes       *string                    `json:"customer_notes,omitempty"`
	Items               types.OrderItems           `json:"items,omitempty"`
	LineItems           []LineItemDTO              `json:"line_items,omitempty"`
	TotalAmount         decimal.Decimal            `json:"total_amount"`
	Subtotal            decimal.Decimal            `json:"subtotal"`
	OrderStatus         enums.OrderStatus          `json:"order_status"`
	AssignedStoreID     *uuid.UUID                 `json:"assigned_store_id,omitempty"`
	MainStoreName       *string                    `json:"main_store_name,omitempty"`
	StoreResponseStatus *enums.StoreResponseStatus `json:"store_response_status,omitempty"`
	RejectionReason     *string                    `json:"rejection_reason,omitempty"`
	ReturnReason        *string                    `json:"return_reason,omitempty"`
	Details             *string                    `json:"details,omitempty"`
	IsDivision          bool                       `json:"is_division"`
	OriginalOrderRef    string                     `json:"original_order_ref,omitempty"`
	OriginalOrderID     *uuid.UUID                 `json:"original_order_id,omitempty"`
	StoreResponseAt     *time.Time                 `json:"store_response_at,omitempty"`
	CompletedAt         *time.Time                 `json:"completed_at,omitempty"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// StoreSplitResult reports the outcome of one store bucket of a split.
type StoreSplitResult struct {
	StoreName  string     `json:"storeName"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	DivisionID *uuid.UUID `json:"divisionId,omitempty"`
	Warning    string     `json:"warning,omitempty"`
}

// SplitResult summarises a split attempt across all store buckets.
type SplitResult struct {
	Success          bool               `json:"success"`
	OriginalOrderID  uuid.UUID          `json:"originalOrderId"`
	TotalStores      int                `json:"totalStores"`
	SuccessfulSplits int                `json:"successfulSplits"`
	PerStore         []StoreSplitResult `json:"perStore"`
}

// CreateOrderResult carries the created order and, for multi-store orders,
// the outcome of the automatic split.
type CreateOrderResult struct {
	Order *OrderDTO    `json:"order"`
	Split *SplitResult `json:"split,omitempty"`
}

// FromModel maps an order row to its DTO.
func FromModel(m *models.Order) *OrderDTO {
	if m == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:                  m.ID,
		OrderCode:           m.OrderCode,
		CustomerName:        m.CustomerName,
		CustomerPhone:       m.CustomerPhone,
		CustomerAddress:     m.CustomerAddress,
		CustomerNotes:       m.CustomerNotes,
		Items:               m.Items,
		TotalAmount:         m.TotalAmount,
		Subtotal:            m.Subtotal,
		OrderStatus:         m.OrderStatus,
		AssignedStoreID:     m.AssignedStoreID,
		MainStoreName:       m.MainStoreName,
		StoreResponseStatus: m.StoreResponseStatus,
		RejectionReason:     m.RejectionReason,
		ReturnReason:        m.ReturnReason,
		Details:             m.Details,
		IsDivision:          divisions.IsDivisionOrder(m),
		OriginalOrderID:     m.OriginalOrderID,
		StoreResponseAt:     m.StoreResponseAt,
		CompletedAt:         m.CompletedAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if ref, ok := divisions.OriginalRef(m); ok {
		dto.OriginalOrderRef = ref
	}
	for _, li := range m.LineItems {
		dto.LineItems = append(dto.LineItems, LineItemDTO{
			ID:              li.ID,
			ProductName:     li.ProductName,
			Quantity:        li.Quantity,
			UnitPrice:       li.UnitPrice,
			DiscountedPrice: li.DiscountedPrice,
			TotalPrice:      li.TotalPrice,
			StoreName:       li.StoreName,
		})
	}
	return dto
}
