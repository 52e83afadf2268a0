package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BulkWrite sends writes as one ordered request; the server stops at the first failing write
func (m *Mongo) BulkWrite(ctx context.Context, writes []types.WriteModel) (int, error) {
	if len(writes) == 0 {
		return 0, nil
	}

	models := make([]mongo.WriteModel, 0, len(writes))
	for _, write := range writes {
		if write.Delete {
			models = append(models, mongo.NewDeleteOneModel().SetFilter(idFilter(write)))
			continue
		}
		models = append(models, mongo.NewReplaceOneModel().SetFilter(idFilter(write)).SetReplacement(write.Document).SetUpsert(true))
	}

	_, err := m.targetCollection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return appliedPrefix(err), classify(fmt.Errorf("bulk write to %s failed: %w", m.config.Target.Namespace(), err))
	}

	return len(writes), nil
}

// ReplaceOne upserts the whole document by _id
func (m *Mongo) ReplaceOne(ctx context.Context, write types.WriteModel) error {
	_, err := m.targetCollection.ReplaceOne(ctx, idFilter(write), write.Document, options.Replace().SetUpsert(true))
	return classify(err)
}

// DeleteOne removes the document by _id; a missing document is not an error
func (m *Mongo) DeleteOne(ctx context.Context, write types.WriteModel) error {
	_, err := m.targetCollection.DeleteOne(ctx, idFilter(write))
	return classify(err)
}

// ServerVersion reads the target's buildInfo version string
func (m *Mongo) ServerVersion(ctx context.Context) (string, error) {
	var info struct {
		Version string `bson:"version"`
	}
	err := m.target.Database(constants.AdminDatabase).RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&info)
	if err != nil {
		return "", classify(fmt.Errorf("failed to run buildInfo: %w", err))
	}

	return info.Version, nil
}

func idFilter(write types.WriteModel) bson.D {
	return bson.D{{Key: constants.MongoPrimaryID, Value: write.ID}}
}

// appliedPrefix is the index of the first failed write of an ordered bulk request; nothing is
// assumed applied when the failure is not tied to a write
func appliedPrefix(err error) int {
	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) || len(bulkErr.WriteErrors) == 0 {
		return 0
	}

	first := bulkErr.WriteErrors[0].Index
	for _, writeErr := range bulkErr.WriteErrors[1:] {
		first = min(first, writeErr.Index)
	}
	return first
}
