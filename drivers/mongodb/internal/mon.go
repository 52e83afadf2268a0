package driver

import (
	"context"
	"fmt"

	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/drivers/abstract"
	"github.com/datazip-inc/fimo/logger"
	"github.com/datazip-inc/fimo/types"
	"github.com/datazip-inc/fimo/utils"
	"github.com/piyushsingariya/relec"
	"go.mongodb.org/mongo-driver/mongo"
)

// Mongo replicates one collection of a source deployment into a collection of a target deployment
type Mongo struct {
	config *types.SyncConfig
	source *mongo.Client
	target *mongo.Client
	// read side with majority read concern
	sourceCollection *mongo.Collection
	targetCollection *mongo.Collection
}

var _ abstract.DriverInterface = (*Mongo)(nil)

func (m *Mongo) Type() string {
	return "Mongo"
}

// Setup connects source and target concurrently and pings both
func (m *Mongo) Setup(ctx context.Context, config *types.SyncConfig) error {
	m.config = config

	endpoints := []endpoint{
		{role: sourceRole, index: 0, Endpoint: config.Source},
		{role: targetRole, index: 1, Endpoint: config.Target},
	}
	clients := make([]*mongo.Client, len(endpoints))
	err := relec.Concurrent(ctx, endpoints, len(endpoints), func(ctx context.Context, endpoint endpoint, _ int) error {
		client, err := connect(ctx, endpoint)
		if err != nil {
			return err
		}
		clients[endpoint.index] = client
		return nil
	})
	if err != nil {
		// close whatever connected before the failure
		for _, client := range clients {
			if client != nil {
				_ = client.Disconnect(context.Background())
			}
		}
		return err
	}

	m.source, m.target = clients[0], clients[1]
	m.sourceCollection = readCollection(m.source, config.Source)
	m.targetCollection = m.target.Database(config.Target.Database).Collection(config.Target.Collection)
	logger.Infof("connected to source[%s] and target[%s]", config.Source.Namespace(), config.Target.Namespace())
	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	var closers []func() error
	for _, client := range []*mongo.Client{m.source, m.target} {
		if client == nil {
			continue
		}
		closers = append(closers, utils.ErrExecFormat("failed to disconnect: %s", func() error {
			return client.Disconnect(ctx)
		}))
	}

	return utils.ErrExecSequential(closers...)
}

func connect(ctx context.Context, endpoint endpoint) (*mongo.Client, error) {
	opts, err := clientOptions(endpoint.Endpoint)
	if err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, constants.DefaultConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to connect to %s: %w", describe(endpoint.role, endpoint.Endpoint), err))
	}
	if err := client.Ping(connectCtx, opts.ReadPreference); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, classify(fmt.Errorf("failed to ping %s: %w", describe(endpoint.role, endpoint.Endpoint), err))
	}

	return client, nil
}
