package service

import (
	"errors"
	"fmt"
)

var (
	// ErrBatchAlreadyRunning is returned by Run when another invocation holds the batch.
	ErrBatchAlreadyRunning = errors.New("batch already running")
	ErrBatchNotFound       = errors.New("batch not found")
)

// AbandonedReason is the LastError recovery writes on batches that outlived the run timeout.
const AbandonedReason = "abandoned: exceeded run timeout"

// BatchInfrastructureError means the batch run record itself could not be read or
// written. The batch may be left running; recovery or an operator must resolve it.
type BatchInfrastructureError struct {
	BatchID string
	Op      string
	Err     error
}

func (e *BatchInfrastructureError) Error() string {
	return fmt.Sprintf("batch %s: %s: %v", e.BatchID, e.Op, e.Err)
}

func (e *BatchInfrastructureError) Unwrap() error {
	return e.Err
}
