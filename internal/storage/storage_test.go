package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	logx "recobot/pkg/logx"
)

func openBoth(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fs, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "files")}, logx.Nop())
	require.NoError(t, err)
	db, err := Open(Config{Driver: "sqlite", Path: filepath.Join(dir, "db", "recobot.db")}, logx.Nop())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = fs.Close()
		_ = db.Close()
	})
	return map[string]Store{"file": fs, "sqlite": db}
}

func TestStoreDocuments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, st := range openBoth(t) {
		t.Run(name, func(t *testing.T) {
			_, err := st.Load(ctx, DocSets)
			require.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, st.Save(ctx, DocSets, []byte(`{"a":1}`)))
			require.NoError(t, st.Save(ctx, DocSets, []byte(`{"a":2}`)))

			b, err := st.Load(ctx, DocSets)
			require.NoError(t, err)
			require.JSONEq(t, `{"a":2}`, string(b))

			require.NoError(t, st.AppendAudit(ctx, AuditEntry{ActorID: 1, Actor: "alice", Tenant: "-100", Command: "create", OK: true}))
		})
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := openFile(Config{Path: dir}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, st.Save(context.Background(), DocSubscriptions, []byte("{}")))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}
}

func TestFileStorePrefersYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := openFile(Config{Path: dir}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	require.Equal(t, filepath.Join(dir, DocWindows+".json"), st.Path(DocWindows))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DocWindows+".yaml"), []byte("[]\n"), 0o644))
	require.Equal(t, filepath.Join(dir, DocWindows+".yaml"), st.Path(DocWindows))
}

func TestFileStoreYAMLFormat(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	st, err := openFile(Config{Path: dir, Format: "yaml"}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	require.Equal(t, filepath.Join(dir, DocSets+".yaml"), st.Path(DocSets))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DocSets+".json"), []byte("{}\n"), 0o644))
	require.Equal(t, filepath.Join(dir, DocSets+".json"), st.Path(DocSets))
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "redis"}, logx.Nop())
	require.Error(t, err)
}

func TestSQLiteAddsActorColumnToOldAudit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `CREATE TABLE audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT, at TEXT NOT NULL, actor_id INTEGER NOT NULL,
		tenant TEXT NOT NULL, command TEXT NOT NULL, target TEXT, ok INTEGER NOT NULL,
		err TEXT, took_ms INTEGER NOT NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, st.AppendAudit(ctx, AuditEntry{ActorID: 7, Actor: "bob", Tenant: "-1", Command: "sub", OK: true}))
	require.NoError(t, st.Close())

	// reopening finds the column already present
	st, err = Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	db, err = sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var actor string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT actor FROM audit WHERE actor_id = 7`).Scan(&actor))
	require.Equal(t, "bob", actor)
}
