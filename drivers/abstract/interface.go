package abstract

import (
	"context"

	"github.com/datazip-inc/fimo/types"
)

// ChangeStream is an open, resumable feed of source mutations
type ChangeStream interface {
	// Next waits up to the driver's await window for one event; false with a nil error means none arrived
	Next(ctx context.Context) (types.ChangeEvent, bool, error)
	// Buffered reports whether Next can return an event without another round trip to the source
	Buffered() bool
	// ResumeToken is the position of the stream, available right after opening
	ResumeToken() types.ResumeToken
	Close(ctx context.Context) error
}

type Source interface {
	// OpenChangeStream resumes after token, or starts at the current time when token is empty.
	// An expired token fails with types.ResumeTokenExpired.
	OpenChangeStream(ctx context.Context, token types.ResumeToken) (ChangeStream, error)
	// FetchAfter returns at most query.Limit records strictly after query.After, ascending by (value, _id)
	FetchAfter(ctx context.Context, query types.RangeQuery) ([]types.SourceRecord, error)
}

type Target interface {
	ServerVersion(ctx context.Context) (string, error)
	// BulkWrite applies writes as one ordered grouped request and returns how many leading writes
	// are known to be applied, even when it fails
	BulkWrite(ctx context.Context, writes []types.WriteModel) (int, error)
	ReplaceOne(ctx context.Context, write types.WriteModel) error
	DeleteOne(ctx context.Context, write types.WriteModel) error
}

type DriverInterface interface {
	Type() string
	// Setup connects to source and target
	Setup(ctx context.Context, config *types.SyncConfig) error
	Close(ctx context.Context) error
	Source
	Target
}

// CursorStrategy produces the next batch to replicate after a checkpoint. Implementations never
// mutate the checkpoint; the Syncer owns it.
type CursorStrategy interface {
	Mode() types.SyncMode
	Next(ctx context.Context, from types.Checkpoint, limit int) (*types.Batch, error)
	Close(ctx context.Context) error
}
