package abstract

import (
	"context"
	"fmt"

	"github.com/datazip-inc/fimo/types"
)

// IncrementalStrategy polls the source for documents strictly after the checkpointed
// (value, _id) position. It cannot observe deletes.
type IncrementalStrategy struct {
	source Source
	field  string
}

func NewIncrementalStrategy(source Source, field string) *IncrementalStrategy {
	return &IncrementalStrategy{source: source, field: field}
}

func (s *IncrementalStrategy) Mode() types.SyncMode {
	return types.FieldIncremental
}

func (s *IncrementalStrategy) Next(ctx context.Context, from types.Checkpoint, limit int) (*types.Batch, error) {
	query := types.RangeQuery{Field: s.field, Limit: limit}
	if from != nil {
		position, ok := from.(*types.FieldCheckpoint)
		if !ok {
			return nil, types.CheckpointMismatch.New("field strategy cannot resume from %s", from)
		}
		query.After = position
	}

	records, err := s.source.FetchAfter(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch documents after %s: %w", describe(query.After), err)
	}
	if len(records) > limit {
		records = records[:limit]
	}

	batch := &types.Batch{Items: make([]types.BatchItem, 0, len(records))}
	previous := query.After
	for idx, record := range records {
		position := record.Position(s.field)
		// a page that is not strictly ascending would skip or repeat documents once checkpointed
		if previous != nil && types.ComparePositions(position, previous) <= 0 {
			return nil, fmt.Errorf("source returned record %d at %s, not after %s", idx, position, previous)
		}

		batch.Items = append(batch.Items, types.BatchItem{
			Write:      types.WriteModel{ID: record.ID, Document: record.Document},
			Checkpoint: position,
		})
		previous = position
	}

	return batch, nil
}

func (s *IncrementalStrategy) Close(_ context.Context) error {
	return nil
}

func describe(position *types.FieldCheckpoint) string {
	if position == nil {
		return "beginning of collection"
	}
	return position.String()
}

// NewCursorStrategy selects the strategy once per run from configuration
func NewCursorStrategy(mode types.SyncMode, source Source, field string) (CursorStrategy, error) {
	switch mode {
	case types.ChangeStream:
		return NewChangeStreamStrategy(source), nil
	case types.FieldIncremental:
		if field == "" {
			return nil, types.InvalidConfig.New("field mode needs a sync field")
		}
		return NewIncrementalStrategy(source, field), nil
	default:
		return nil, types.InvalidConfig.New("unknown sync mode [%s]", mode)
	}
}
