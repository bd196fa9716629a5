package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/pagination"
)

// Repository persists notifications. Every read and update is scoped to a
// Recipient.
type Repository interface {
	CreateBatch(ctx context.Context, notes []models.Notification) error
	List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, recipient Recipient, id uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipient Recipient, at time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type listQuery struct {
	Recipient  Recipient
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) inbox(ctx context.Context, recipient Recipient) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_role = ?", recipient.Role)
	switch recipient.Role {
	case enums.ActorRoleStore:
		storeID := uuid.Nil
		if recipient.StoreID != nil {
			storeID = *recipient.StoreID
		}
		q = q.Where("store_id = ?", storeID)
	case enums.ActorRoleCustomer:
		q = q.Where("customer_phone = ?", recipient.CustomerPhone)
	}
	return q
}

func (r *gormRepository) CreateBatch(ctx context.Context, notes []models.Notification) error {
	if len(notes) == 0 {
		return nil
	}
	for i := range notes {
		if notes[i].ID == uuid.Nil {
			notes[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&notes).Error
}

func (r *gormRepository) List(ctx context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error) {
	query := r.inbox(ctx, q.Recipient)
	if q.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var rows []models.Notification
	if err := pagination.Apply(query, q.Cursor, q.Limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, q.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	return page, next, nil
}

// MarkRead reports whether the notification exists in the recipient's inbox.
// Marking an already read notification keeps its original read_at.
func (r *gormRepository) MarkRead(ctx context.Context, recipient Recipient, id uuid.UUID, at time.Time) (bool, error) {
	var row models.Notification
	err := r.inbox(ctx, recipient).Select("id", "read_at").Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if row.ReadAt != nil {
		return true, nil
	}
	err = r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", at).Error
	return true, err
}

func (r *gormRepository) MarkAllRead(ctx context.Context, recipient Recipient, at time.Time) (int64, error) {
	res := r.inbox(ctx, recipient).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore purges notifications read before cutoff across every inbox.
func (r *gormRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("read_at IS NOT NULL AND read_at < ?", cutoff).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
