package driver

import (
	"context"
	"fmt"

	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/drivers/abstract"
	"github.com/datazip-inc/fimo/logger"
	"github.com/datazip-inc/fimo/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var changeStreamPipeline = mongo.Pipeline{
	{{Key: "$match", Value: bson.D{
		{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace", "delete"}}}},
	}}},
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID bson.RawValue `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.Raw `bson:"fullDocument"`
}

// OpenChangeStream watches the source collection with post images looked up for updates
func (m *Mongo) OpenChangeStream(ctx context.Context, token types.ResumeToken) (abstract.ChangeStream, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup).SetMaxAwaitTime(constants.ChangeStreamAwaitTime)
	if len(token) > 0 {
		resumeAfter, err := decodeResumeToken(token)
		if err != nil {
			return nil, err
		}
		opts.SetResumeAfter(resumeAfter)
	}

	cursor, err := m.sourceCollection.Watch(ctx, changeStreamPipeline, opts)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to open change stream: %w", err))
	}

	return &changeStream{cursor: cursor}, nil
}

type changeStream struct {
	cursor *mongo.ChangeStream
}

func (c *changeStream) Next(ctx context.Context) (types.ChangeEvent, bool, error) {
	if !c.cursor.TryNext(ctx) {
		if err := c.cursor.Err(); err != nil {
			return types.ChangeEvent{}, false, classify(fmt.Errorf("failed to iterate change stream: %w", err))
		}
		return types.ChangeEvent{}, false, nil
	}

	var raw changeEvent
	if err := c.cursor.Decode(&raw); err != nil {
		return types.ChangeEvent{}, false, fmt.Errorf("failed to decode change event: %w", err)
	}
	token, err := encodeResumeToken(c.cursor.ResumeToken())
	if err != nil {
		return types.ChangeEvent{}, false, err
	}

	event, err := toChangeEvent(raw, token)
	if err != nil {
		return types.ChangeEvent{}, false, err
	}
	return event, true, nil
}

func (c *changeStream) Buffered() bool {
	return c.cursor.RemainingBatchLength() > 0
}

func (c *changeStream) ResumeToken() types.ResumeToken {
	token, err := encodeResumeToken(c.cursor.ResumeToken())
	if err != nil {
		logger.Warnf("failed to encode resume token: %s", err)
		return nil
	}

	return token
}

func (c *changeStream) Close(ctx context.Context) error {
	return c.cursor.Close(ctx)
}

func toChangeEvent(raw changeEvent, token types.ResumeToken) (types.ChangeEvent, error) {
	if raw.DocumentKey.ID.Type == 0 {
		return types.ChangeEvent{}, fmt.Errorf("change event %s has no document key", raw.OperationType)
	}

	var id any
	if err := raw.DocumentKey.ID.Unmarshal(&id); err != nil {
		return types.ChangeEvent{}, fmt.Errorf("failed to decode document key: %w", err)
	}

	event := types.ChangeEvent{
		Operation:  types.OperationType(raw.OperationType),
		DocumentID: id,
		Token:      token,
	}
	if event.Operation != types.Delete && len(raw.FullDocument) > 0 {
		event.Document = raw.FullDocument
	}

	return event, nil
}

// resume tokens are persisted as relaxed extended JSON of the server document
func encodeResumeToken(token bson.Raw) (types.ResumeToken, error) {
	if len(token) == 0 {
		return nil, nil
	}

	data, err := bson.MarshalExtJSON(token, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resume token: %w", err)
	}
	return data, nil
}

func decodeResumeToken(token types.ResumeToken) (bson.D, error) {
	var resumeAfter bson.D
	if err := bson.UnmarshalExtJSON(token, false, &resumeAfter); err != nil {
		return nil, types.CheckpointMismatch.Wrap(err, "resume token %s is not a change stream token", token)
	}

	return resumeAfter, nil
}
