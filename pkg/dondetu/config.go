package dondetu

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend.
const (
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendSurrealDB = "surrealdb"
	BackendFirestore = "firestore"
)

// Config holds application configuration. Values come from, in increasing
// precedence: defaults, the YAML config file, DONDETU_* environment variables
// and command line flags.
type Config struct {
	Backend  string `yaml:"backend"`
	ReadOnly bool   `yaml:"read_only"`

	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	SurrealDB SurrealDBConfig `yaml:"surrealdb"`
	Firestore FirestoreConfig `yaml:"firestore"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Loader    LoaderConfig    `yaml:"loader"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type SurrealDBConfig struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type FirestoreConfig struct {
	ProjectID string `yaml:"project_id"`
}

// RedisConfig enables the read-through cache when URL is set.
type RedisConfig struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

// AuthConfig describes the tokens the identity provider issues for the
// dashboard. An empty Secret disables the admin API.
type AuthConfig struct {
	Secret    string `yaml:"secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
	AdminRole string `yaml:"admin_role"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

type LoaderConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendPostgres,
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Postgres: PostgresConfig{
			DSN: "host=localhost user=dondetu password=dondetu dbname=dondetu port=5432 sslmode=disable",
		},
		SQLite: SQLiteConfig{
			Path: "dondetu.db",
		},
		SurrealDB: SurrealDBConfig{
			URL:       "ws://localhost:8000/rpc",
			Namespace: "dondetu",
			Database:  "dondetu",
			Username:  "root",
			Password:  "root",
		},
		Auth: AuthConfig{
			AdminRole: "admin",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Loader: LoaderConfig{
			Concurrency: 8,
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults and applies the
// environment. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from DONDETU_* environment variables.
func (c *Config) ApplyEnv() error {
	c.Backend = getEnv("DONDETU_BACKEND", c.Backend)
	c.Server.Port = getEnv("DONDETU_PORT", c.Server.Port)
	c.Postgres.DSN = getEnv("DONDETU_POSTGRES_DSN", c.Postgres.DSN)
	c.SQLite.Path = getEnv("DONDETU_SQLITE_PATH", c.SQLite.Path)
	c.SurrealDB.URL = getEnv("DONDETU_SURREALDB_URL", c.SurrealDB.URL)
	c.SurrealDB.Namespace = getEnv("DONDETU_SURREALDB_NS", c.SurrealDB.Namespace)
	c.SurrealDB.Database = getEnv("DONDETU_SURREALDB_DB", c.SurrealDB.Database)
	c.SurrealDB.Username = getEnv("DONDETU_SURREALDB_USER", c.SurrealDB.Username)
	c.SurrealDB.Password = getEnv("DONDETU_SURREALDB_PASS", c.SurrealDB.Password)
	c.Firestore.ProjectID = getEnv("DONDETU_FIRESTORE_PROJECT", c.Firestore.ProjectID)
	c.Redis.URL = getEnv("DONDETU_REDIS_URL", c.Redis.URL)
	c.Auth.Secret = getEnv("DONDETU_AUTH_SECRET", c.Auth.Secret)
	c.Auth.Issuer = getEnv("DONDETU_AUTH_ISSUER", c.Auth.Issuer)
	c.Auth.Audience = getEnv("DONDETU_AUTH_AUDIENCE", c.Auth.Audience)
	c.Log.Level = getEnv("DONDETU_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("DONDETU_LOG_FORMAT", c.Log.Format)

	if v := os.Getenv("DONDETU_READ_ONLY"); v != "" {
		readOnly, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DONDETU_READ_ONLY %q: %w", v, err)
		}
		c.ReadOnly = readOnly
	}
	if v := os.Getenv("DONDETU_REDIS_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DONDETU_REDIS_TTL %q: %w", v, err)
		}
		c.Redis.TTL = ttl
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("postgres.dsn is required"))
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite.path is required"))
		}
	case BackendSurrealDB:
		if c.SurrealDB.URL == "" || c.SurrealDB.Namespace == "" || c.SurrealDB.Database == "" {
			errs = append(errs, errors.New("surrealdb.url, surrealdb.namespace and surrealdb.database are required"))
		}
	case BackendFirestore:
		if c.Firestore.ProjectID == "" {
			errs = append(errs, errors.New("firestore.project_id is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server.port %q", c.Server.Port))
	}
	if c.Redis.TTL < 0 {
		errs = append(errs, errors.New("redis.ttl must not be negative"))
	}
	if c.Auth.Secret != "" && strings.TrimSpace(c.Auth.AdminRole) == "" {
		errs = append(errs, errors.New("auth.admin_role is required when auth.secret is set"))
	}
	if c.Loader.Concurrency < 0 {
		errs = append(errs, errors.New("loader.concurrency must not be negative"))
	}

	return errors.Join(errs...)
}

// getEnv retrieves an environment variable value with a fallback default value.
// Empty variables count as unset.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
