package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storeorders/pkg/db/models"
	"github.com/angelmondragon/storeorders/pkg/enums"
	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
	"github.com/angelmondragon/storeorders/pkg/pagination"
)

// fakeRepository records writes and answers reads from canned values.
type fakeRepository struct {
	created   []models.Notification
	createErr error

	page     []models.Notification
	next     *pagination.Cursor
	lastList listQuery

	found   bool
	marked  int64
	markErr error
	readAt  time.Time
}

func (f *fakeRepository) CreateBatch(_ context.Context, notes []models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, notes...)
	return nil
}

func (f *fakeRepository) List(_ context.Context, q listQuery) ([]models.Notification, *pagination.Cursor, error) {
	f.lastList = q
	return f.page, f.next, nil
}

func (f *fakeRepository) MarkRead(_ context.Context, _ Recipient, _ uuid.UUID, at time.Time) (bool, error) {
	f.readAt = at
	return f.found, f.markErr
}

func (f *fakeRepository) MarkAllRead(_ context.Context, _ Recipient, at time.Time) (int64, error) {
	f.readAt = at
	return f.marked, f.markErr
}

func (f *fakeRepository) DeleteReadBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func testService(t *testing.T, repo *fakeRepository) *service {
	t.Helper()
	svc, err := NewService(repo)
	require.NoError(t, err)
	s := svc.(*service)
	s.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.FixedZone("x", 3600)) }
	return s
}

func storeRecipient() Recipient {
	id := uuid.New()
	return Recipient{Role: enums.ActorRoleStore, StoreID: &id}
}

func TestListEncodesNextCursor(t *testing.T) {
	next := pagination.Cursor{CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), ID: uuid.New()}
	repo := &fakeRepository{page: []models.Notification{{ID: uuid.New()}}, next: &next}
	recipient := storeRecipient()

	result, err := testService(t, repo).List(context.Background(), ListParams{Recipient: recipient, Limit: 1, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, 1, repo.lastList.Limit)
	assert.True(t, repo.lastList.UnreadOnly)
	assert.Nil(t, repo.lastList.Cursor)

	decoded, err := pagination.ParseCursor(result.Cursor)
	require.NoError(t, err)
	assert.Equal(t, next.ID, decoded.ID)

	_, err = testService(t, repo).List(context.Background(), ListParams{Recipient: recipient, Cursor: result.Cursor})
	require.NoError(t, err)
	require.NotNil(t, repo.lastList.Cursor)
	assert.Equal(t, next.ID, repo.lastList.Cursor.ID)
}

func TestListReturnsEmptySliceAndRejectsBadCursor(t *testing.T) {
	svc := testService(t, &fakeRepository{})

	result, err := svc.List(context.Background(), ListParams{Recipient: Recipient{Role: enums.ActorRoleAdmin}})
	require.NoError(t, err)
	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Cursor)

	_, err = svc.List(context.Background(), ListParams{Recipient: storeRecipient(), Cursor: "bad"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRecipientValidate(t *testing.T) {
	blank := uuid.Nil
	cases := map[string]struct {
		recipient Recipient
		code      pkgerrors.Code
	}{
		"store without id":       {Recipient{Role: enums.ActorRoleStore}, pkgerrors.CodeValidation},
		"store with nil id":      {Recipient{Role: enums.ActorRoleStore, StoreID: &blank}, pkgerrors.CodeValidation},
		"customer without phone": {Recipient{Role: enums.ActorRoleCustomer, CustomerPhone: " "}, pkgerrors.CodeValidation},
		"system role":            {Recipient{Role: enums.ActorRoleSystem}, pkgerrors.CodeForbidden},
	}
	for name, tc := range cases {
		assert.True(t, pkgerrors.IsCode(tc.recipient.Validate(), tc.code), name)
	}

	assert.NoError(t, Recipient{Role: enums.ActorRoleAdmin}.Validate())
	assert.NoError(t, Recipient{Role: enums.ActorRoleCustomer, CustomerPhone: "+15550100"}.Validate())
	assert.NoError(t, storeRecipient().Validate())
}

func TestMarkRead(t *testing.T) {
	repo := &fakeRepository{found: true}
	svc := testService(t, repo)

	require.NoError(t, svc.MarkRead(context.Background(), storeRecipient(), uuid.New()))
	assert.Equal(t, time.UTC, repo.readAt.Location())

	err := svc.MarkRead(context.Background(), storeRecipient(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	repo.found = false
	err = svc.MarkRead(context.Background(), storeRecipient(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	repo.markErr = errors.New("db down")
	err = svc.MarkRead(context.Background(), storeRecipient(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestMarkAllRead(t *testing.T) {
	repo := &fakeRepository{marked: 3}
	svc := testService(t, repo)

	n, err := svc.MarkAllRead(context.Background(), storeRecipient())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	repo.markErr = errors.New("boom")
	_, err = svc.MarkAllRead(context.Background(), storeRecipient())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	_, err = svc.MarkAllRead(context.Background(), Recipient{Role: enums.ActorRoleSystem})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
