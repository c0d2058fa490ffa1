package staging

import (
	"fmt"

	"stagehand/internal/ingest/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// terminalColumns maps an outcome onto the status columns it writes. Skipped
// outcomes never reach the store.
func terminalColumns(o models.RecordOutcome) (models.RecordStatus, models.ErrorKind, *string, error) {
	switch o.Status {
	case models.OutcomeCompleted:
		if o.TargetEntityID == nil {
			return "", "", nil, fmt.Errorf("completed outcome for record %d has no target entity id", o.RecordID)
		}
		return models.RecordStatusCompleted, "", nil, nil
	case models.OutcomeFailed:
		if o.Err == nil {
			return "", "", nil, fmt.Errorf("failed outcome for record %d has no error", o.RecordID)
		}
		msg := o.Err.Message
		return models.RecordStatusFailed, o.Err.Kind, &msg, nil
	}
	return "", "", nil, fmt.Errorf("outcome %q for record %d is not terminal", o.Status, o.RecordID)
}

func failedRow(rec *models.StagingRecord) models.FailedRecord {
	row := models.FailedRecord{
		ID:             rec.ID,
		BatchID:        rec.BatchID,
		Kind:           rec.Kind,
		ErrorKind:      rec.ErrorKind,
		TargetEntityID: rec.TargetEntityID,
		RawFields:      rec.RawFields,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.ErrorMessage != nil {
		row.ErrorMessage = *rec.ErrorMessage
	}
	if rec.ProcessedAt != nil {
		row.ProcessedAt = *rec.ProcessedAt
	}
	return row
}
