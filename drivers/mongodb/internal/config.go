package driver

import (
	"errors"
	"fmt"

	"github.com/datazip-inc/fimo/types"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	sourceRole = "source"
	targetRole = "target"

	appName     = "fimo"
	maxPoolSize = 100
)

// server error codes of a change stream that can no longer resume
const (
	changeStreamHistoryLost = 286
	changeStreamFatalError  = 280
)

type endpoint struct {
	types.Endpoint
	role  string
	index int
}

func clientOptions(endpoint types.Endpoint) (*options.ClientOptions, error) {
	opts := options.Client()
	opts.ApplyURI(endpoint.URI)
	if err := opts.Validate(); err != nil {
		return nil, types.InvalidConfig.Wrap(err, "invalid uri for %s", endpoint.Namespace())
	}
	opts.SetAppName(appName)
	opts.SetCompressors([]string{"snappy"})
	opts.SetMaxPoolSize(maxPoolSize)
	if opts.ReadPreference == nil {
		opts.SetReadPreference(readpref.Primary())
	}
	// acknowledged by a majority before a checkpoint may move past it
	opts.SetWriteConcern(writeconcern.Majority())

	return opts, nil
}

func readCollection(client *mongo.Client, endpoint types.Endpoint) *mongo.Collection {
	return client.Database(endpoint.Database, options.Database().SetReadConcern(readconcern.Majority())).Collection(endpoint.Collection)
}

// classify tags driver errors with the replication error taxonomy
func classify(err error) error {
	if err == nil {
		return nil
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && (serverErr.HasErrorCode(changeStreamHistoryLost) || serverErr.HasErrorCode(changeStreamFatalError)) {
		return types.ResumeTokenExpired.Wrap(err, "resume token is no longer in the oplog")
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return types.Transient.Wrap(err, "mongo unavailable")
	}

	return err
}

func describe(role string, endpoint types.Endpoint) string {
	return fmt.Sprintf("%s[%s]", role, endpoint.Namespace())
}
