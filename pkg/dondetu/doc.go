// Package dondetu provides the application behind the DóndeTú discovery app:
// the public HTTP API the mobile app reads, the dashboard API editors write
// through, and the command line that runs, migrates and seeds it.
//
// # Getting Started
//
// The command line is documented at [Main]. The HTTP endpoints are listed at
// [App.Handler].
//
//	# Create the schema and load some places into a local SQLite file
//	dondetu --backend sqlite migrate
//	dondetu --backend sqlite seed -f places.yaml
//
//	# Serve the API
//	dondetu --backend sqlite run
//
//	# Serve from Firestore with a Redis cache in front
//	DONDETU_FIRESTORE_PROJECT=dondetu-prod DONDETU_REDIS_URL=redis://localhost:6379/0 \
//	  dondetu --backend firestore run
//
// # Environment Variables
//
//	DONDETU_CONFIG             - YAML config file
//	DONDETU_BACKEND            - postgres, sqlite, surrealdb or firestore (default: postgres)
//	DONDETU_PORT               - HTTP port (default: 8080)
//	DONDETU_POSTGRES_DSN       - PostgreSQL connection string
//	DONDETU_SQLITE_PATH        - SQLite database file (default: dondetu.db)
//	DONDETU_SURREALDB_URL      - SurrealDB WebSocket URL (default: ws://localhost:8000/rpc)
//	DONDETU_SURREALDB_NS       - SurrealDB namespace (default: dondetu)
//	DONDETU_SURREALDB_DB       - SurrealDB database (default: dondetu)
//	DONDETU_SURREALDB_USER     - SurrealDB username (default: root)
//	DONDETU_SURREALDB_PASS     - SurrealDB password (default: root)
//	DONDETU_FIRESTORE_PROJECT  - Google Cloud project holding the Firestore database
//	DONDETU_REDIS_URL          - Enables the read-through cache
//	DONDETU_REDIS_TTL          - Cache entry lifetime (default: 5m)
//	DONDETU_AUTH_SECRET        - HMAC secret of dashboard tokens; unset disables the admin API
//	DONDETU_AUTH_ISSUER        - Required token issuer
//	DONDETU_AUTH_AUDIENCE      - Required token audience
//	DONDETU_READ_ONLY          - Start with writes disabled
//	DONDETU_LOG_LEVEL          - debug, info, warn or error (default: info)
//	DONDETU_LOG_FORMAT         - json or console (default: json)
//
// # Read-only Mode
//
// Editors can freeze the directory from the dashboard during data imports
// (POST /api/admin/read-only). While frozen every write fails with 503 and
// reads keep being served.
package dondetu
