package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "division-link-backfill"

	m.Observe(job, 250*time.Millisecond, nil)
	m.Observe(job, time.Second, errors.New("boom"))
	m.Observe("", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", "success")))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues(job)), 0.0)

	count, err := testutil.GatherAndCount(reg, "storeorders_cron_job_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecordersAreNilSafe(t *testing.T) {
	var cron *CronJobMetrics
	cron.Observe("x", time.Second, nil)
	assert.Nil(t, NewCronJobMetrics(nil))

	var orders *OrderMetrics
	orders.IncVerdict("completed")
	NewOrderMetrics(nil).IncSplit(true)

	var outbox *OutboxMetrics
	outbox.IncOutcome("x", OutboxOutcomeRetry)
}

func TestOrderMetricsCountsVerdictsAndSplits(t *testing.T) {
	m := NewOrderMetrics(prometheus.NewRegistry())
	m.IncVerdict("completed")
	m.IncVerdict("completed")
	m.IncVerdict("")
	m.IncSplit(true)
	m.IncSplit(false)
	m.IncGateDecision(false)
	m.IncVerdictError()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.verdicts.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verdicts.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.splits.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.splits.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gateDecisions.WithLabelValues("blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.verdictErrors))
}

func TestOutboxMetricsCountsOutcomes(t *testing.T) {
	m := NewOutboxMetrics(prometheus.NewRegistry())
	m.IncOutcome("division_confirmed", OutboxOutcomePublished)
	m.IncOutcome("division_confirmed", OutboxOutcomeRetry)
	m.IncOutcome("", OutboxOutcomeDeadLettered)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("division_confirmed", OutboxOutcomePublished)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("division_confirmed", OutboxOutcomeRetry)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("unknown", OutboxOutcomeDeadLettered)))
}
