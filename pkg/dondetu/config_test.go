package dondetu

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_defaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), config)
	assert.NoError(t, config.Validate())
}

func TestLoadConfig_file(t *testing.T) {
	path := writeFile(t, "dondetu.yaml", `
backend: surrealdb
read_only: true
server:
  port: "9090"
  shutdown_timeout: 30s
surrealdb:
  url: ws://surreal:8000/rpc
  namespace: prod
redis:
  url: redis://cache:6379/1
  ttl: 2m
auth:
  secret: s3cret
  issuer: https://id.dondetu.mx
log:
  level: debug
  format: console
loader:
  concurrency: 4
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSurrealDB, config.Backend)
	assert.True(t, config.ReadOnly)
	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, 30*time.Second, config.Server.ShutdownTimeout)
	assert.Equal(t, "ws://surreal:8000/rpc", config.SurrealDB.URL)
	assert.Equal(t, "prod", config.SurrealDB.Namespace)
	// unset keys keep their defaults
	assert.Equal(t, "dondetu", config.SurrealDB.Database)
	assert.Equal(t, "admin", config.Auth.AdminRole)
	assert.Equal(t, 2*time.Minute, config.Redis.TTL)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, 4, config.Loader.Concurrency)
	assert.NoError(t, config.Validate())
}

func TestLoadConfig_envOverridesFile(t *testing.T) {
	path := writeFile(t, "dondetu.yaml", "backend: postgres\nserver:\n  port: \"9090\"\n")
	t.Setenv("DONDETU_BACKEND", "firestore")
	t.Setenv("DONDETU_FIRESTORE_PROJECT", "dondetu-staging")
	t.Setenv("DONDETU_READ_ONLY", "true")
	t.Setenv("DONDETU_REDIS_TTL", "90s")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendFirestore, config.Backend)
	assert.Equal(t, "dondetu-staging", config.Firestore.ProjectID)
	assert.Equal(t, "9090", config.Server.Port)
	assert.True(t, config.ReadOnly)
	assert.Equal(t, 90*time.Second, config.Redis.TTL)
}

func TestLoadConfig_errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeFile(t, "bad.yaml", "server: [not, a, map]"))
	assert.Error(t, err)

	t.Setenv("DONDETU_READ_ONLY", "sometimes")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, "DONDETU_READ_ONLY")
}

func TestConfig_Validate(t *testing.T) {
	config := DefaultConfig()
	config.Backend = BackendFirestore
	config.Server.Port = "http"
	config.Redis.TTL = -time.Second
	config.Auth.Secret = "s3cret"
	config.Auth.AdminRole = " "

	err := config.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"firestore.project_id is required",
		`invalid server.port "http"`,
		"redis.ttl must not be negative",
		"auth.admin_role is required",
	} {
		assert.ErrorContains(t, err, want)
	}

	config = DefaultConfig()
	config.Backend = "mongodb"
	assert.ErrorContains(t, config.Validate(), `unknown backend "mongodb"`)
}
