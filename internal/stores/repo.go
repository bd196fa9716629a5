package stores

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/pkg/db/models"
)

// Repository reads and writes the stores table. Lookups return nil, nil
// when no row matches.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, dto CreateStoreDTO) (*models.Store, error) {
	store := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(store).Error; err != nil {
		return nil, err
	}
	return store, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByName compares names case-insensitively after trimming.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Store, error) {
	return r.first(r.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)))
}

func (r *Repository) first(q *gorm.DB) (*models.Store, error) {
	var store models.Store
	err := q.Take(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// ListActive returns active stores ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&stores).Error
	return stores, err
}

// SetActive toggles whether a store can be assigned new divisions.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).Model(&models.Store{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
