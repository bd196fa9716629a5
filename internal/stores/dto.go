package stores

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storeorders/pkg/db/models"
)

// CreateStoreDTO carries the fields used to register a store.
type CreateStoreDTO struct {
	Name  string
	Phone *string
	Email *string
}

// ToModel converts the DTO into a store row.
func (dto CreateStoreDTO) ToModel() *models.Store {
	return &models.Store{
		ID:       uuid.New(),
		Name:     strings.TrimSpace(dto.Name),
		Phone:    dto.Phone,
		Email:    dto.Email,
		IsActive: true,
	}
}

// StoreDTO is the API representation of a store.
type StoreDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FromModel maps a store row to its DTO.
func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:        m.ID,
		Name:      m.Name,
		Phone:     m.Phone,
		Email:     m.Email,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
