package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "stagehand/pkg/platform/audit"
)

func TestInMemoryStore_ListNewestFirstWithFilter(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	for _, e := range []audit.Event{
		{EntityKind: audit.EntityStagingRecord, EntityID: "1", Kind: audit.EventCreated},
		{EntityKind: audit.EntityBatchRun, EntityID: "b1", Kind: audit.EventCreated},
		{EntityKind: audit.EntityStagingRecord, EntityID: "1", Kind: audit.EventCompleted},
		{EntityKind: audit.EntityStagingRecord, EntityID: "2", Kind: audit.EventFailed},
	} {
		require.NoError(t, s.Append(ctx, e))
	}

	got, err := s.List(ctx, audit.Filter{EntityKind: audit.EntityStagingRecord, EntityID: "1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, audit.EventCompleted, got[0].Kind)

	got, err = s.List(ctx, audit.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].EntityID)

	assert.Len(t, s.All(), 4)
	s.Clear()
	assert.Empty(t, s.All())
}
