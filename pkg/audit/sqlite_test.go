package audit

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	log, err := NewSQLiteLog(path, nil)
	require.NoError(t, err)

	transition, fill, snapshot := sampleEvents()
	log.OrderTransition(transition)
	log.Fill(fill)
	log.Snapshot(snapshot)
	require.NoError(t, log.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	count := func(table string) int {
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		return n
	}
	assert.Equal(t, 1, count("order_transitions"))
	assert.Equal(t, 1, count("fills"))
	assert.Equal(t, 1, count("snapshots"))

	var toStatus, quantity, createdAt string
	require.NoError(t, db.QueryRow(
		"SELECT to_status, quantity, created_at FROM order_transitions").Scan(&toStatus, &quantity, &createdAt))
	assert.Equal(t, "SUBMITTED", toStatus)
	assert.Equal(t, "100", quantity)

	stamp, err := time.Parse(time.RFC3339, createdAt)
	require.NoError(t, err)
	assert.Equal(t, transition.Order.CreatedAt.Truncate(time.Second), stamp.Truncate(time.Second))
}
