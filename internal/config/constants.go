package config

import "time"

// Database connection pool settings (postgres only, sqlite uses a single connection)
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// SQLite busy timeout in milliseconds
const SQLiteBusyTimeoutMs = 5000

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 65 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Reconcile job run timeout
const ReconcileTimeout = 30 * time.Second

// Rate limiting window for POST /api/record
const RateLimitWindow = time.Minute

// Maximum accepted request body
const MaxBodySize = 1 << 20
