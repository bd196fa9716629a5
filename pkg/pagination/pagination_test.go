package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storeorders/pkg/errors"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{CreatedAt: time.Date(2026, 3, 1, 12, 30, 0, 123, time.UTC), ID: uuid.New()}

	encoded := EncodeCursor(cursor)
	assert.NotContains(t, encoded, "=")

	decoded, err := ParseCursor(encoded)
	require.NoError(t, err)
	assert.True(t, cursor.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, cursor.ID, decoded.ID)
}

func TestParseCursorBlank(t *testing.T) {
	cursor, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, value := range []string{"not-base64!", "Zm9v", EncodeCursor(Cursor{})[:4]} {
		_, err := ParseCursor(value)
		require.Error(t, err, value)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), value)
	}
}

func TestTrim(t *testing.T) {
	key := func(n int) Cursor {
		return Cursor{CreatedAt: time.Unix(int64(n), 0).UTC()}
	}

	rows, next := Trim([]int{5, 4, 3}, 2, key)
	assert.Equal(t, []int{5, 4}, rows)
	require.NotNil(t, next)
	assert.Equal(t, int64(4), next.CreatedAt.Unix())

	rows, next = Trim([]int{2, 1}, 2, key)
	assert.Equal(t, []int{2, 1}, rows)
	assert.Nil(t, next)
}
