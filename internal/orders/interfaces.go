package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/pagination"
)

// Repository defines persistence operations over the orders and
// order_line_items tables. Originals and divisions share the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	CreateLineItems(ctx context.Context, items []models.OrderLineItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error)
	// FindDivisionCandidates returns rows that may be divisions of ref: rows
	// whose details contain the marker for ref, plus rows whose parent column
	// equals ref when ref is a uuid. Callers filter with anchored matching.
	FindDivisionCandidates(ctx context.Context, ref string) ([]models.Order, error)
	FindDivisionByStore(ctx context.Context, originalID uuid.UUID, storeName string) (*models.Order, error)
	FindUnlinkedDivisions(ctx context.Context, limit int) ([]models.Order, error)
	FindOriginalByCode(ctx context.Context, code string) (*models.Order, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
}

// Splitter divides a multi-store order into per-store divisions.
type Splitter interface {
	SplitOrder(ctx context.Context, originalOrderID uuid.UUID) (*SplitResult, error)
}
