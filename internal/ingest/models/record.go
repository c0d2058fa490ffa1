package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RecordKind is the kind of entity a staging record describes.
type RecordKind string

const (
	RecordKindCustomer RecordKind = "customer"
	RecordKindOrder    RecordKind = "order"
	RecordKindProduct  RecordKind = "product"
)

func (k RecordKind) IsValid() bool {
	switch k {
	case RecordKindCustomer, RecordKindOrder, RecordKindProduct:
		return true
	}
	return false
}

// ParseRecordKind normalizes and validates a kind string.
func ParseRecordKind(s string) (RecordKind, error) {
	k := RecordKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown record kind %q", s)
	}
	return k, nil
}

// RecordStatus is a staging record's lifecycle position.
//
//	pending --claim--> processing --success--> completed
//	                   processing --error----> failed
type RecordStatus string

const (
	RecordStatusPending    RecordStatus = "pending"
	RecordStatusProcessing RecordStatus = "processing"
	RecordStatusCompleted  RecordStatus = "completed"
	RecordStatusFailed     RecordStatus = "failed"
)

// IsTerminal reports whether no further transition can occur.
func (s RecordStatus) IsTerminal() bool {
	return s == RecordStatusCompleted || s == RecordStatusFailed
}

// ErrorKind classifies why a record failed.
type ErrorKind string

const (
	// ErrorKindValidation: fix the source data and resubmit in a new batch.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindDuplicate: the target already holds an entity with this natural key.
	ErrorKindDuplicate ErrorKind = "duplicate"
	// ErrorKindTransientLoad: the target store failed or timed out; retryable across
	// runs once an operator resets the record to pending.
	ErrorKindTransientLoad ErrorKind = "transient_load"
)

// Field is one source column as received.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Fields is an ordered mapping of source field name to raw string value. Values stay
// strings even when they look numeric; the source is untrusted.
type Fields []Field

// Get returns the trimmed value of the first field named name.
func (f Fields) Get(name string) (string, bool) {
	for _, field := range f {
		if field.Name == name {
			return strings.TrimSpace(field.Value), true
		}
	}
	return "", false
}

// Value returns the trimmed value of name, or "" when absent.
func (f Fields) Value(name string) string {
	v, _ := f.Get(name)
	return v
}

// Names returns field names in source order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, field := range f {
		names[i] = field.Name
	}
	return names
}

// StagingRecord is one raw, not-yet-committed unit of input tied to a batch.
type StagingRecord struct {
	ID        int64
	BatchID   string
	Kind      RecordKind
	RawFields Fields
	RawBlob   []byte
	Status    RecordStatus
	CreatedAt time.Time

	// ClaimedAt is set on the pending->processing transition. Recovery uses it as
	// the lease start for records stuck in processing.
	ClaimedAt      *time.Time
	ProcessedAt    *time.Time
	ErrorKind      ErrorKind
	ErrorMessage   *string
	TargetEntityID *int64
}

// Snapshot is the audit view of a record's lifecycle fields.
func (r StagingRecord) Snapshot() RecordSnapshot {
	return RecordSnapshot{
		Status:         r.Status,
		ErrorKind:      r.ErrorKind,
		ErrorMessage:   r.ErrorMessage,
		TargetEntityID: r.TargetEntityID,
		ProcessedAt:    r.ProcessedAt,
	}
}

// RecordSnapshot is serialized into audit before/after states.
type RecordSnapshot struct {
	Status         RecordStatus `json:"status"`
	ErrorKind      ErrorKind    `json:"error_kind,omitempty"`
	ErrorMessage   *string      `json:"error_message,omitempty"`
	TargetEntityID *int64       `json:"target_entity_id,omitempty"`
	ProcessedAt    *time.Time   `json:"processed_at,omitempty"`
}

// NewRecord is what the intake collaborator hands over for staging.
type NewRecord struct {
	Kind      RecordKind
	RawFields Fields
	RawBlob   []byte
}

// RawBlobFor builds a full-fidelity JSON copy of fields when the source did not
// supply its own blob.
func RawBlobFor(fields Fields) []byte {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return b
}

// RecordError is the reason attached to a failed outcome.
type RecordError struct {
	Kind    ErrorKind
	Message string
}

func (e *RecordError) Error() string {
	return e.Message
}

// OutcomeStatus is the result of processing one record.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
	// OutcomeSkipped means the record was no longer pending when claimed, so this
	// run did not touch it.
	OutcomeSkipped OutcomeStatus = "skipped"
)

// RecordOutcome is returned by the record processor instead of raising.
type RecordOutcome struct {
	RecordID       int64
	Status         OutcomeStatus
	TargetEntityID *int64
	Err            *RecordError
}

func Completed(recordID, entityID int64) RecordOutcome {
	return RecordOutcome{RecordID: recordID, Status: OutcomeCompleted, TargetEntityID: &entityID}
}

func Failed(recordID int64, kind ErrorKind, message string) RecordOutcome {
	return RecordOutcome{RecordID: recordID, Status: OutcomeFailed, Err: &RecordError{Kind: kind, Message: message}}
}

func Skipped(recordID int64) RecordOutcome {
	return RecordOutcome{RecordID: recordID, Status: OutcomeSkipped}
}

// FailedRecord is a row of the operator failed-records listing.
type FailedRecord struct {
	ID             int64      `json:"staging_id"`
	BatchID        string     `json:"batch_id"`
	Kind           RecordKind `json:"record_kind"`
	ErrorKind      ErrorKind  `json:"error_kind"`
	ErrorMessage   string     `json:"error_message"`
	TargetEntityID *int64     `json:"target_entity_id,omitempty"`
	RawFields      Fields     `json:"raw_fields"`
	CreatedAt      time.Time  `json:"created_at"`
	ProcessedAt    time.Time  `json:"processed_at"`
}

// FailedRecordFilter narrows the failed-records listing.
type FailedRecordFilter struct {
	BatchID string
	Kinds   []RecordKind
	Limit   int
}
