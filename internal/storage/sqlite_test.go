package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteBootstrapsTables(t *testing.T) {
	t.Parallel()

	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "lingua.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range []string{"triples", "request_log"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?;", table).Scan(&name)
		require.NoError(t, err, "table %q missing", table)
	}
}

func TestOpenSQLiteRejectsEmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	db, err := OpenSQLite(context.Background(), filepath.Join(dir, "lingua.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	script := `-- people
CREATE TABLE people (
  id   INTEGER PRIMARY KEY,
  name TEXT NOT NULL
);
INSERT INTO people (name) VALUES ('ada');
INSERT INTO people (name) VALUES ('grace; hopper');

INSERT INTO triples VALUES ('ex:ada', 'ex:knows', 'ex:grace')`
	seed := filepath.Join(dir, "seed.sql")
	require.NoError(t, os.WriteFile(seed, []byte(script), 0o600))

	require.NoError(t, Seed(context.Background(), db, seed))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM people").Scan(&n))
	assert.Equal(t, 2, n)
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM triples").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSeedRollsBackOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	db, err := OpenSQLite(context.Background(), filepath.Join(dir, "lingua.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	seed := filepath.Join(dir, "seed.sql")
	require.NoError(t, os.WriteFile(seed, []byte("INSERT INTO triples VALUES ('a','b','c');\nNOT SQL;\n"), 0o600))

	err = Seed(context.Background(), db, seed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM triples").Scan(&n))
	assert.Zero(t, n)
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- c\nSELECT 1;\n\nSELECT\n  2;\nSELECT 3")
	assert.Equal(t, []string{"SELECT 1;", "SELECT\n  2;", "SELECT 3"}, got)
}

func TestOpenReadOnlyRefusesWrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lingua.db")
	db, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec("CREATE TABLE people (name TEXT); INSERT INTO people VALUES ('ada');")
	require.NoError(t, err)

	ro, err := OpenReadOnly(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ro.Close() })

	var n int
	require.NoError(t, ro.QueryRow("SELECT COUNT(*) FROM people").Scan(&n))
	assert.Equal(t, 1, n)

	_, err = ro.Exec("PRAGMA query_only = OFF")
	require.NoError(t, err)
	_, err = ro.Exec("DELETE FROM people")
	assert.Error(t, err, "mode=ro must hold even with query_only lifted")

	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM people").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpenReadOnlyMissingFile(t *testing.T) {
	t.Parallel()

	_, err := OpenReadOnly(context.Background(), filepath.Join(t.TempDir(), "absent.db"))
	assert.Error(t, err)
}
