package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerMarksAndReadsIdentities(t *testing.T) {
	t.Parallel()

	conn, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer conn.Close()

	ledger := NewLedger(conn)

	seen, err := ledger.Seen("t1|2024-05-01T12:00:00Z|due_date")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, ledger.MarkSent("t1|2024-05-01T12:00:00Z|due_date", time.Now()))

	seen, err = ledger.Seen("t1|2024-05-01T12:00:00Z|due_date")
	require.NoError(t, err)
	assert.True(t, seen)

	// Duplicate marks do not error.
	require.NoError(t, ledger.MarkSent("t1|2024-05-01T12:00:00Z|due_date", time.Now()))
}

func TestLedgerSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")

	conn, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewLedger(conn).MarkSent("t2|2024-05-01T12:00:00Z|overdue", time.Now()))
	require.NoError(t, conn.Close())

	conn, err = Open(path)
	require.NoError(t, err)
	defer conn.Close()

	seen, err := NewLedger(conn).Seen("t2|2024-05-01T12:00:00Z|overdue")
	require.NoError(t, err)
	assert.True(t, seen, "identity must persist across restarts")
}
