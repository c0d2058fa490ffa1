package postgres

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaDeclaresEveryTable(t *testing.T) {
	for _, table := range []string{
		"batch_runs", "staging_records", "audit_events",
		"users", "user_profiles", "addresses", "orders", "products",
		"customer_summaries", "daily_sales_summaries",
	} {
		assert.Contains(t, Schema(), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	for _, line := range strings.Split(Schema(), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "CREATE ") {
			assert.Contains(t, line, "IF NOT EXISTS", line)
		}
	}
}

func TestOpenWithoutURL(t *testing.T) {
	db, err := Open(context.Background(), "", DefaultPool)
	require.NoError(t, err)
	assert.Nil(t, db)

	pool, err := OpenPool(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Nil(t, pool)
}
