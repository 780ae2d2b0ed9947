// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesPragmas(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "state.sqlite"), Config{BusyTimeout: 1500 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var journal string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal))
	assert.Equal(t, "wal", journal)

	var sync int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA synchronous").Scan(&sync))
	assert.Equal(t, 1, sync, "NORMAL")

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestVerifyIntegrity_Healthy(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.sqlite")
	db, err := Open(ctx, path, DefaultConfig())
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "CREATE TABLE endpoints (key TEXT PRIMARY KEY, stream_id TEXT)")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, "INSERT INTO endpoints VALUES ('relay', 's-1')")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	for _, mode := range []CheckMode{QuickCheck, FullCheck, "bogus"} {
		issues, err := VerifyIntegrity(ctx, path, mode)
		require.NoError(t, err, mode)
		assert.Nil(t, issues, mode)
	}
}

func TestVerifyIntegrity_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.sqlite")
	junk := make([]byte, 8192)
	for i := range junk {
		junk[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(path, junk, 0o600))

	issues, err := VerifyIntegrity(context.Background(), path, QuickCheck)
	assert.True(t, err != nil || len(issues) > 0, "garbage must not verify clean")
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/x.db?_pragma=busy_timeout%282000%29&mode=ro", dsn("/tmp/x.db", true, "busy_timeout(2000)"))
}
