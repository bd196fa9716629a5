package cron

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/pkg/logger"
)

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	defaultOutboxRetention       = 30 * 24 * time.Hour
)

// purgeJob deletes whatever its purge func selects as older than now minus
// retention.
type purgeJob struct {
	name      string
	logg      *logger.Logger
	retention time.Duration
	purge     func(ctx context.Context, cutoff time.Time) (int64, error)
	now       func() time.Time
}

func newPurgeJob(name string, logg *logger.Logger, retention, fallback time.Duration, purge func(context.Context, time.Time) (int64, error)) (*purgeJob, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if retention <= 0 {
		retention = fallback
	}
	return &purgeJob{name: name, logg: logg, retention: retention, purge: purge, now: time.Now}, nil
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"job":          j.name,
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "purge complete")
	return nil
}

// NotificationCleanupJobParams configure the purge of read notifications.
type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository interface {
		DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

// NewNotificationCleanupJob drops notifications read before the retention
// window. Unread ones are kept however old.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	return newPurgeJob("notification-cleanup", params.Logger, params.Retention, defaultNotificationRetention, params.Repository.DeleteReadBefore)
}

// OutboxRetentionJobParams configure the purge of published outbox rows.
type OutboxRetentionJobParams struct {
	Logger *logger.Logger
	DB     interface {
		WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	}
	Repository interface {
		DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

// NewOutboxRetentionJob drops outbox rows published before the retention
// window. Pending and dead-lettered rows stay.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.DB == nil || params.Repository == nil {
		return nil, errors.New("db and outbox repository required")
	}
	purge := func(ctx context.Context, cutoff time.Time) (deleted int64, err error) {
		err = params.DB.WithTx(ctx, func(tx *gorm.DB) error {
			deleted, err = params.Repository.DeletePublishedBefore(tx, cutoff)
			return err
		})
		return deleted, err
	}
	return newPurgeJob("outbox-retention", params.Logger, params.Retention, defaultOutboxRetention, purge)
}
