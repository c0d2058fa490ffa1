package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchKindAccepts(t *testing.T) {
	assert.True(t, BatchKindCustomer.Accepts(RecordKindCustomer))
	assert.False(t, BatchKindCustomer.Accepts(RecordKindOrder))
	assert.True(t, BatchKindFullSync.Accepts(RecordKindProduct))
	assert.False(t, BatchKindFullSync.Accepts(RecordKind("invoice")))
}

func TestParseKinds(t *testing.T) {
	k, err := ParseRecordKind(" Order ")
	require.NoError(t, err)
	assert.Equal(t, RecordKindOrder, k)

	_, err = ParseRecordKind("invoice")
	assert.ErrorContains(t, err, `unknown record kind "invoice"`)

	b, err := ParseBatchKind("FULL_SYNC")
	require.NoError(t, err)
	assert.Equal(t, BatchKindFullSync, b)
}

func TestCountsAdd(t *testing.T) {
	var c Counts
	assert.True(t, c.IsZero())

	c.Add(Completed(1, 10))
	c.Add(Failed(2, ErrorKindValidation, "email is invalid"))
	c.Add(Skipped(3))
	c.Add(Skipped(4))

	assert.Equal(t, Counts{Processed: 1, Failed: 1, Skipped: 2}, c)
}

func TestNewBatchReport(t *testing.T) {
	started := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	completed := started.Add(90 * time.Second)

	done := NewBatchReport(BatchRun{
		ID: "b1", Status: BatchStatusCompleted, TotalRecords: 4, ProcessedRecords: 3, FailedRecords: 1,
		StartedAt: &started, CompletedAt: &completed,
	}, completed.Add(time.Hour))
	assert.Equal(t, 75.0, done.SuccessRatePercent)
	assert.Equal(t, 90.0, done.DurationSeconds)
	assert.Nil(t, done.ElapsedSeconds)

	running := NewBatchReport(BatchRun{ID: "b2", Status: BatchStatusRunning, StartedAt: &started}, started.Add(30*time.Second))
	require.NotNil(t, running.ElapsedSeconds)
	assert.Equal(t, 30.0, *running.ElapsedSeconds)
	assert.Zero(t, running.SuccessRatePercent, "no records means no rate")
	assert.Zero(t, running.DurationSeconds)
}

func TestFieldsLookup(t *testing.T) {
	f := Fields{{Name: "email", Value: "  ada@example.com "}, {Name: "email", Value: "second"}}

	v, ok := f.Get("email")
	assert.True(t, ok)
	assert.Equal(t, "ada@example.com", v)
	assert.Empty(t, f.Value("phone"))
	assert.Equal(t, []string{"email", "email"}, f.Names())
	assert.JSONEq(t, `[{"name":"email","value":"  ada@example.com "},{"name":"email","value":"second"}]`, string(RawBlobFor(f)))
}

func TestRecordStatusTerminal(t *testing.T) {
	assert.False(t, RecordStatusPending.IsTerminal())
	assert.False(t, RecordStatusProcessing.IsTerminal())
	assert.True(t, RecordStatusCompleted.IsTerminal())
	assert.True(t, RecordStatusFailed.IsTerminal())
	assert.True(t, BatchStatusCancelled.IsTerminal())
	assert.False(t, BatchStatusPending.IsTerminal())
}
