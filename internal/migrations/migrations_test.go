package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetMigrator tests that the migrator is built once
func TestGetMigrator(t *testing.T) {
	m, err := getMigrator()
	require.NoError(t, err, "Should create migrator instance")
	require.NotNil(t, m, "Should create migrator instance")

	m2, err := getMigrator()
	require.NoError(t, err)
	assert.Same(t, m, m2, "Should return same migrator instance")
}

// TestSyncStateSchema tests the run state table definition
func TestSyncStateSchema(t *testing.T) {
	assert.Contains(t, createSyncStateSQL, "CREATE TABLE sync_state")
	for _, column := range []string{
		"job text PRIMARY KEY",
		"run_id uuid",
		"started_at",
		"finished_at",
		"inserted",
		"updated",
		"deleted",
		"quarantined",
		"error text",
		"last_success_at",
	} {
		assert.Contains(t, createSyncStateSQL, column)
	}
}
