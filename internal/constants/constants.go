package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	// BatchChunkSize bounds how many ids one bulk-mutation transaction
	// binds as IN placeholders.
	BatchChunkSize = 50

	DefaultPageSize = 30
	MaxPageSize     = 200

	// EnrichConcurrency caps the per-page enrichment fan-out.
	EnrichConcurrency = 8
)

// SessionGap is the idle time after which a newly ingested match starts a
// new session group instead of joining the previous one.
const SessionGap = 30 * time.Minute

const (
	ShutdownTimeout = 5 * time.Second
)
