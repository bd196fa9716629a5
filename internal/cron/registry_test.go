package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(namedJob("backfill")))
	require.NoError(t, reg.Register(namedJob("outbox-retention")))

	jobs := reg.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "backfill", jobs[0].Name())
	assert.Equal(t, "outbox-retention", jobs[1].Name())

	jobs[0] = nil
	assert.NotNil(t, reg.Jobs()[0])
}

func TestRegistryRejectsDuplicatesAndNil(t *testing.T) {
	reg := NewRegistry(namedJob("a"), nil, namedJob("a"))
	assert.Len(t, reg.Jobs(), 1)

	assert.ErrorIs(t, reg.Register(nil), errNilJob)
	assert.ErrorContains(t, reg.Register(namedJob("a")), `"a" already registered`)
	assert.NoError(t, reg.Register(namedJob("b")))
}
