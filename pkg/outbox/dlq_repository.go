package outbox

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/pkg/db/models"
)

// DLQRepository appends parked events to outbox_dlq. Rows are never updated;
// replaying one means emitting a fresh event.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errTxRequired
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.ErrorMessage != nil && len(*entry.ErrorMessage) > lastErrorLimit {
		msg := (*entry.ErrorMessage)[:lastErrorLimit]
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}
