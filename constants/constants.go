package constants

import "time"

const (
	MongoPrimaryID = "_id"
	AdminDatabase  = "admin"

	DefaultBatchLimit = 100
	// server side wait of one getMore on an idle change stream
	ChangeStreamAwaitTime = 5 * time.Second
	DefaultConnectTimeout = 5 * time.Minute
	DefaultProbeTimeout   = 30 * time.Second

	BackoffBaseDelay = 10 * time.Second
	BackoffMaxDelay  = 60 * time.Second

	// first MongoDB major version served with grouped writes
	BulkWriteMinMajorVersion = 8

	CheckpointFileMode = 0644
	HealthFileMode     = 0644
)

// viper keys
const (
	LogFolder   = "LOG_FOLDER"
	EnvPrefix   = "FIMO"
	SyncIDKey   = "SYNC_ID"
	RunIDKey    = "RUN_ID"
	LogLevelKey = "LOG_LEVEL"
)

// checkpoint cursor keys, also used as log fields
const (
	CursorToken  = "token"
	CursorLastID = "last_id"
	CursorValue  = "value"
)
