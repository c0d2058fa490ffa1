package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for batch runs and record processing.
type Metrics struct {
	BatchRunsStarted  prometheus.Counter
	BatchRunsFinished *prometheus.CounterVec
	BatchRunDuration  prometheus.Histogram
	RecordsStaged     *prometheus.CounterVec
	RecordOutcomes    *prometheus.CounterVec
	RecordDuration    *prometheus.HistogramVec
	RetentionDeleted  *prometheus.CounterVec
	RecoveryResets    *prometheus.CounterVec
}

// New registers the ingest metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BatchRunsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "stagehand_batch_runs_started_total",
			Help: "Total number of batch runs started",
		}),
		BatchRunsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stagehand_batch_runs_finished_total",
			Help: "Total number of batch runs finished, by final status",
		}, []string{"status"}),
		BatchRunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stagehand_batch_run_duration_seconds",
			Help:    "Wall time of one batch run invocation",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
		}),
		RecordsStaged: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stagehand_records_staged_total",
			Help: "Total number of records landed in staging, by record kind",
		}, []string{"kind"}),
		RecordOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stagehand_record_outcomes_total",
			Help: "Total number of processed records, by kind, outcome and error kind",
		}, []string{"kind", "outcome", "error_kind"}),
		RecordDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stagehand_record_duration_seconds",
			Help:    "Duration of processing one staged record",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
		}, []string{"kind"}),
		RetentionDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stagehand_retention_deleted_total",
			Help: "Total number of rows removed by the retention sweeper, by entity",
		}, []string{"entity"}),
		RecoveryResets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stagehand_recovery_resets_total",
			Help: "Total number of stale records reset and batches abandoned by recovery",
		}, []string{"entity"}),
	}
}

func (m *Metrics) IncrementBatchRunsStarted() {
	m.BatchRunsStarted.Inc()
}

// ObserveBatchRun records a finished run. Call with time.Now() at the start of the run.
func (m *Metrics) ObserveBatchRun(status string, start time.Time) {
	m.BatchRunsFinished.WithLabelValues(status).Inc()
	m.BatchRunDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddRecordsStaged(kind string, n int) {
	m.RecordsStaged.WithLabelValues(kind).Add(float64(n))
}

// ObserveRecord records one record outcome. Call with time.Now() at the start of processing.
func (m *Metrics) ObserveRecord(kind, outcome, errorKind string, start time.Time) {
	m.RecordOutcomes.WithLabelValues(kind, outcome, errorKind).Inc()
	m.RecordDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddRetentionDeleted(entity string, n int64) {
	m.RetentionDeleted.WithLabelValues(entity).Add(float64(n))
}

func (m *Metrics) AddRecoveryResets(entity string, n int) {
	m.RecoveryResets.WithLabelValues(entity).Add(float64(n))
}
