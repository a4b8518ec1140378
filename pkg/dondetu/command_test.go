package dondetu

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/dondetu/dondetu/pkg/store"
	"github.com/dondetu/dondetu/pkg/store/postgres"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, ctx context.Context, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestCommand_migrateAndSeed(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dondetu.db")
	t.Setenv("DONDETU_SQLITE_PATH", dbPath)
	ctx := context.Background()

	_, logs, err := execute(t, ctx, "--backend", "sqlite", "migrate")
	require.NoError(t, err)
	assert.Contains(t, logs, "Migration complete")

	seedPath := writeFile(t, "places.yaml", seedYAML)
	out, _, err := execute(t, ctx, "--backend", "sqlite", "--log-level", "warn", "seed", "-f", seedPath)
	require.NoError(t, err)
	assert.Equal(t, "Seeded 2 social networks, 2 places and 1 events\n", out)

	s, err := postgres.New(sqlite.Open(dbPath))
	require.NoError(t, err)
	defer s.Close()
	places, err := s.ListPlaces(ctx, store.PlaceFilter{})
	require.NoError(t, err)
	assert.Len(t, places, 2)
}

func TestCommand_migrateWhileReadOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "dondetu.db")
	t.Setenv("DONDETU_SQLITE_PATH", dbPath)
	ctx := context.Background()

	_, logs, err := execute(t, ctx, "--backend", "sqlite", "--read-only", "migrate")
	require.NoError(t, err)
	assert.Contains(t, logs, "Migration complete")

	seedPath := writeFile(t, "places.yaml", seedYAML)
	_, _, err = execute(t, ctx, "--backend", "sqlite", "--read-only", "seed", "-f", seedPath)
	assert.ErrorIs(t, err, store.ErrReadOnly)
}

func TestCommand_seedRequiresFile(t *testing.T) {
	t.Setenv("DONDETU_SQLITE_PATH", filepath.Join(t.TempDir(), "dondetu.db"))

	_, _, err := execute(t, context.Background(), "--backend", "sqlite", "seed")
	assert.ErrorContains(t, err, `required flag(s) "file" not set`)
}

func TestCommand_invalidConfiguration(t *testing.T) {
	_, _, err := execute(t, context.Background(), "--backend", "mongodb", "migrate")
	assert.ErrorContains(t, err, `unknown backend "mongodb"`)

	_, _, err = execute(t, context.Background(), "--backend", "sqlite", "--log-level", "loud", "migrate")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestCommand_configFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "from-config.db")
	config := writeFile(t, "dondetu.yaml", "backend: sqlite\nsqlite:\n  path: "+dbPath+"\nlog:\n  format: console\n")

	_, logs, err := execute(t, context.Background(), "--config", config, "migrate")
	require.NoError(t, err)
	assert.Contains(t, logs, "Migration complete")
	assert.FileExists(t, dbPath)
}

func TestMain_runStopsOnCancel(t *testing.T) {
	t.Setenv("DONDETU_SQLITE_PATH", filepath.Join(t.TempDir(), "dondetu.db"))
	t.Setenv("DONDETU_LOG_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Main(ctx, []string{"--backend", "sqlite", "--port", "0", "--read-only", "run"})
	assert.NoError(t, err)
}
