package abstract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/datazip-inc/fimo/logger"
	"github.com/datazip-inc/fimo/types"
)

// ChangeStreamStrategy tails the source change stream. The open stream is reused as long as the
// Syncer asks for the position it last handed out; any other position reopens the stream there.
type ChangeStreamStrategy struct {
	source Source
	stream ChangeStream
	// position of the open stream as the Syncer sees it: the token it was opened at, then the
	// token of the last event handed out
	at types.ResumeToken
	// position of the first stream opened at "now"; stands in for an empty checkpoint afterwards
	origin types.ResumeToken
}

func NewChangeStreamStrategy(source Source) *ChangeStreamStrategy {
	return &ChangeStreamStrategy{source: source}
}

func (s *ChangeStreamStrategy) Mode() types.SyncMode {
	return types.ChangeStream
}

func (s *ChangeStreamStrategy) Next(ctx context.Context, from types.Checkpoint, limit int) (*types.Batch, error) {
	token, err := s.resumeToken(from)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOpen(ctx, token); err != nil {
		return nil, err
	}

	batch := &types.Batch{}
	// the first event may wait on the source; the rest are taken only while already buffered
	event, ok, err := s.stream.Next(ctx)
	if err != nil {
		s.reset(ctx)
		return nil, fmt.Errorf("failed to read change stream: %w", err)
	}
	if !ok {
		return batch, nil
	}
	s.add(batch, event)

	for batch.Len() < limit && s.stream.Buffered() {
		event, ok, err = s.stream.Next(ctx)
		if err != nil {
			// events gathered so far are intact; reopen from the checkpoint on the next pull
			logger.Warnf("change stream interrupted after %d events: %s", batch.Len(), err)
			s.reset(ctx)
			break
		}
		if !ok {
			break
		}
		s.add(batch, event)
	}

	return batch, nil
}

func (s *ChangeStreamStrategy) add(batch *types.Batch, event types.ChangeEvent) {
	batch.Items = append(batch.Items, types.BatchItem{
		Write:      event.WriteModel(),
		Checkpoint: &types.ChangeStreamCheckpoint{Token: event.Token},
	})
	s.at = event.Token
}

func (s *ChangeStreamStrategy) resumeToken(from types.Checkpoint) (types.ResumeToken, error) {
	if from == nil {
		return s.origin, nil
	}

	checkpoint, ok := from.(*types.ChangeStreamCheckpoint)
	if !ok {
		return nil, types.CheckpointMismatch.New("change stream cannot resume from %s", from)
	}

	return checkpoint.Token, nil
}

func (s *ChangeStreamStrategy) ensureOpen(ctx context.Context, token types.ResumeToken) error {
	if s.stream != nil {
		if bytes.Equal(token, s.at) {
			return nil
		}
		logger.Infof("reopening change stream at checkpointed token %s", string(token))
		s.reset(ctx)
	}

	stream, err := s.source.OpenChangeStream(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to open change stream: %w", err)
	}
	s.stream = stream
	s.at = token

	if len(token) == 0 {
		s.origin = stream.ResumeToken()
		s.at = s.origin
		if len(s.origin) == 0 {
			logger.Warn("change stream opened without an initial resume token; events before the first commit are not recoverable after a failure")
		}
		logger.Infof("started change stream at current time, token %s", string(s.origin))
	} else {
		logger.Infof("resumed change stream after token %s", string(token))
	}
	return nil
}

func (s *ChangeStreamStrategy) reset(ctx context.Context) {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(ctx); err != nil {
		logger.Warnf("failed to close change stream: %s", err)
	}
	s.stream = nil
	s.at = nil
}

func (s *ChangeStreamStrategy) Close(ctx context.Context) error {
	if s.stream == nil {
		return nil
	}

	err := s.stream.Close(ctx)
	s.stream = nil
	s.at = nil
	return err
}
