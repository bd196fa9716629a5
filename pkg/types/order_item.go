package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// UnknownStoreName buckets items that carry no store name.
const UnknownStoreName = "unknown store"

// OrderItem is one entry of the items array carried by an original order
// before it is divided between stores.
type OrderItem struct {
	ProductName     string           `json:"product_name" validate:"required"`
	Quantity        int              `json:"quantity" validate:"gt=0"`
	UnitPrice       decimal.Decimal  `json:"unit_price" validate:"gte=0"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price,omitempty" validate:"omitempty,gte=0"`
	StoreName       string           `json:"store_name"`
}

// EffectivePrice is the discounted price when present, else the unit price.
func (i OrderItem) EffectivePrice() decimal.Decimal {
	if i.DiscountedPrice != nil {
		return *i.DiscountedPrice
	}
	return i.UnitPrice
}

// LineTotal is EffectivePrice multiplied by quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NormalizedStoreName trims the store name attached to the item.
func (i OrderItem) NormalizedStoreName() string {
	return strings.TrimSpace(i.StoreName)
}

// StoreKey is the bucket an item belongs to when an order is divided.
func (i OrderItem) StoreKey() string {
	if name := i.NormalizedStoreName(); name != "" {
		return name
	}
	return UnknownStoreName
}

// OrderItems is the JSON items column.
type OrderItems []OrderItem

// Total sums LineTotal across all items.
func (items OrderItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// StoreNames lists the distinct store keys in first-seen order.
func (items OrderItems) StoreNames() []string {
	seen := make(map[string]struct{}, len(items))
	names := make([]string, 0, len(items))
	for _, item := range items {
		key := item.StoreKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, key)
	}
	return names
}
