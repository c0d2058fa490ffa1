package batch

import "context"

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// RecordCounter reports how many staging records a batch still owns.
type RecordCounter interface {
	CountByBatch(ctx context.Context, batchID string) (int, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
