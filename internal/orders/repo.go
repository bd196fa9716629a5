package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/internal/divisions"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("LineItems").Create(order).Error
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error) {
	var items []models.OrderLineItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindDivisionCandidates(ctx context.Context, ref string) ([]models.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Where(`details LIKE ? ESCAPE '\'`, "%"+escapeLike(divisions.Marker(ref))+"%")
	if parentID, err := uuid.Parse(ref); err == nil {
		query = query.Or("original_order_id = ?", parentID)
	}

	var rows []models.Order
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindDivisionByStore(ctx context.Context, originalID uuid.UUID, storeName string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("original_order_id = ? AND LOWER(main_store_name) = LOWER(?)", originalID, strings.TrimSpace(storeName)).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindUnlinkedDivisions returns marker-only divisions that predate the
// original_order_id column.
func (r *repository) FindUnlinkedDivisions(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = pagination.MaxLimit
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("original_order_id IS NULL").
		Where(`details LIKE ? ESCAPE '\'`, "%"+escapeLike(divisions.MarkerPrefix)+"%").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindOriginalByCode returns the non-division order carrying code.
func (r *repository) FindOriginalByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("order_code = ? AND original_order_id IS NULL", strings.TrimSpace(code)).
		Where(`(details IS NULL OR details NOT LIKE ? ESCAPE '\')`, "%"+escapeLike(divisions.MarkerPrefix)+"%").
		Order("created_at ASC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the order and its line items.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	result := db.Where("id = ?", id).Delete(&models.Order{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.StoreID != nil {
		query = query.Where("assigned_store_id = ?", *filters.StoreID)
	}
	if filters.Status != nil {
		query = query.Where("order_status = ?", *filters.Status)
	}
	if filters.ResponseStatus != nil {
		query = query.Where("store_response_status = ?", *filters.ResponseStatus)
	}
	if filters.CustomerPhone != "" {
		query = query.Where("customer_phone = ?", filters.CustomerPhone)
	}
	if filters.DivisionsOnly {
		query = query.Where(`(original_order_id IS NOT NULL OR details LIKE ? ESCAPE '\')`, "%"+escapeLike(divisions.MarkerPrefix)+"%")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}

	var rows []models.Order
	if err := pagination.Apply(query, cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
