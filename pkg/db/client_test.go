package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storeorders/pkg/logger"
)

type txProbe struct {
	ID   int
	Name string
}

func openProbeDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:dbclient?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&txProbe{}))
	require.NoError(t, conn.Exec("DELETE FROM tx_probes").Error)
	return conn
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	conn := openProbeDB(t)
	client := Wrap(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&txProbe{Name: "division-a"}).Error
	}))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&txProbe{Name: "division-b"}).Error; err != nil {
			return err
		}
		return errors.New("store lookup failed")
	})
	require.Error(t, err)

	var names []string
	require.NoError(t, conn.Model(&txProbe{}).Order("id").Pluck("name", &names).Error)
	assert.Equal(t, []string{"division-a"}, names)
}

func TestWithTxRethrowsPanics(t *testing.T) {
	client := Wrap(openProbeDB(t))

	assert.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			panic("boom")
		})
	})
}

func TestQueryLoggerReportsFailuresAndSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: &buf})
	conn := openProbeDB(t).Session(&gorm.Session{Logger: newQueryLogger(logg, time.Nanosecond)})

	var probe txProbe
	err := conn.First(&probe, "id = ?", -1).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Contains(t, buf.String(), "db.slow_query")
	assert.NotContains(t, buf.String(), "db.query_failed")

	buf.Reset()
	require.Error(t, conn.Exec("SELECT * FROM missing_table").Error)
	assert.Contains(t, buf.String(), "db.query_failed")
	assert.Contains(t, buf.String(), "missing_table")

	assert.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}

func TestPing(t *testing.T) {
	client := Wrap(openProbeDB(t))
	require.NoError(t, client.Ping(context.Background()))
}

func TestIsUniqueViolation(t *testing.T) {
	err := errors.New(`ERROR: duplicate key value violates unique constraint "stores_name_key"`)
	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "stores_name_key"))
	assert.False(t, IsUniqueViolation(err, "orders_pkey"))
	assert.False(t, IsUniqueViolation(nil, ""))

	sqliteErr := errors.New("UNIQUE constraint failed: outbox_events.event_type, outbox_events.aggregate_id")
	assert.True(t, IsUniqueViolation(sqliteErr, ""))

	pgErr := fmt.Errorf("create: %w", &pgconn.PgError{Code: "23505", ConstraintName: "stores_name_key"})
	assert.True(t, IsUniqueViolation(pgErr, "stores_name_key"))
	assert.False(t, IsUniqueViolation(pgErr, "orders_pkey"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
}
