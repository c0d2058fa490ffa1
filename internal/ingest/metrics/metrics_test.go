package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_CountersByLabel(t *testing.T) {
	m := New(prometheus.NewRegistry())
	start := time.Now()

	m.IncrementBatchRunsStarted()
	m.ObserveBatchRun("completed", start)
	m.AddRecordsStaged("customer", 3)
	m.ObserveRecord("customer", "failed", "duplicate", start)
	m.ObserveRecord("customer", "completed", "", start)
	m.AddRetentionDeleted("staging_record", 4)
	m.AddRecoveryResets("batch_run", 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRunsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchRunsFinished.WithLabelValues("completed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsStaged.WithLabelValues("customer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordOutcomes.WithLabelValues("customer", "failed", "duplicate")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RetentionDeleted.WithLabelValues("staging_record")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecoveryResets.WithLabelValues("batch_run")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RecordDuration))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) }, "duplicate registration is a wiring bug")
}
