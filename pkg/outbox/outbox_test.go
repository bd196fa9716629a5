package outbox

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storeorders/pkg/db/dbtest"
	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	"github.com/angelmondragon/storeorders/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *Repository, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}))
	svc.now = func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo, db
}

func completedEvent(aggregateID uuid.UUID) DomainEvent {
	return DomainEvent{
		EventType:     enums.EventAllDivisionsCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   aggregateID,
		Data:          map[string]string{"originalOrderId": "O1"},
	}
}

func TestEmitStoresEnvelope(t *testing.T) {
	svc, _, db := newTestService(t)
	aggregateID := uuid.New()
	storeID := uuid.New()

	event := completedEvent(aggregateID)
	event.Actor = &ActorRef{UserID: uuid.New(), StoreID: &storeID, Role: enums.ActorRoleStore}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, event)
	}))

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, aggregateID, rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	envelope, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, 1, envelope.Version)
	assert.True(t, envelope.OccurredAt.Equal(svc.now()))
	assert.JSONEq(t, `{"originalOrderId":"O1"}`, string(envelope.Data))
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, storeID, *envelope.Actor.StoreID)
	_, err = uuid.Parse(envelope.EventID)
	assert.NoError(t, err)
}

func TestEmitRejectsUnknownTypeAndMissingTx(t *testing.T) {
	svc, _, db := newTestService(t)

	assert.ErrorIs(t, svc.Emit(context.Background(), nil, completedEvent(uuid.New())), errTxRequired)

	bad := completedEvent(uuid.New())
	bad.EventType = "order_teleported"
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, bad)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order_teleported")
}

func TestEmitIfNotExistsWritesOnce(t *testing.T) {
	svc, _, db := newTestService(t)
	aggregateID := uuid.New()

	var written []bool
	for i := 0; i < 2; i++ {
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			ok, err := svc.EmitIfNotExists(context.Background(), tx, completedEvent(aggregateID))
			written = append(written, ok)
			return err
		}))
	}

	assert.Equal(t, []bool{true, false}, written)
	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFetchSkipsExhaustedRowsAndKeepsOrder(t *testing.T) {
	_, repo, db := newTestService(t)
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	older := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: base}
	newer := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: base.Add(time.Minute)}
	exhausted := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: base.Add(-time.Minute), AttemptCount: 3}
	for _, row := range []models.OutboxEvent{newer, exhausted, older} {
		require.NoError(t, repo.Insert(db, row))
	}

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, older.ID, rows[0].ID)
	assert.Equal(t, newer.ID, rows[1].ID)

	require.NoError(t, repo.MarkFailedTx(db, older.ID, errors.New(strings.Repeat("x", 2000))))
	require.NoError(t, repo.MarkPublishedTx(db, newer.ID))

	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	assert.Len(t, *rows[0].LastError, lastErrorLimit)

	require.NoError(t, repo.MarkTerminalTx(db, older.ID, errors.New("gone"), 3))
	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDLQInsertClipsMessage(t *testing.T) {
	_, _, db := newTestService(t)
	dlq := NewDLQRepository(db)
	msg := strings.Repeat("e", lastErrorLimit+10)

	require.NoError(t, dlq.InsertTx(db, models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
	}))

	var stored models.OutboxDLQ
	require.NoError(t, db.First(&stored).Error)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, lastErrorLimit)
	assert.ErrorIs(t, dlq.InsertTx(nil, models.OutboxDLQ{}), errTxRequired)
}

func TestDecodeEnvelopeRejectsIncompleteDocuments(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":   `{`,
		"no version": `{"eventId":"e","data":{}}`,
		"null data":  `{"version":1,"eventId":"e","data":null}`,
		"no data":    `{"version":1,"eventId":"e"}`,
	} {
		_, err := DecodeEnvelope([]byte(raw))
		assert.Error(t, err, name)
	}

	envelope, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"e","data":{"a":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "e", envelope.EventID)
}
