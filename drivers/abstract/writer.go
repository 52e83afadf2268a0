package abstract

import (
	"context"
	"fmt"

	"github.com/datazip-inc/fimo/types"
)

// BatchWriter applies batches as idempotent upserts and deletes keyed by _id
type BatchWriter struct {
	target Target
}

func NewBatchWriter(target Target) *BatchWriter {
	return &BatchWriter{target: target}
}

// Apply returns the length of the applied prefix of batch. On error the prefix may be shorter than
// the batch; nothing after it was applied.
func (w *BatchWriter) Apply(ctx context.Context, batch *types.Batch, capability types.TargetCapability) (int, error) {
	if batch.IsEmpty() {
		return 0, nil
	}

	writes := batch.Writes()
	if capability == types.BulkCapable {
		applied, err := w.target.BulkWrite(ctx, writes)
		applied = max(0, min(applied, len(writes)))
		if err != nil {
			return applied, fmt.Errorf("bulk write stopped after %d of %d writes: %w", applied, len(writes), err)
		}
		return len(writes), nil
	}

	for idx, write := range writes {
		if err := ctx.Err(); err != nil {
			return idx, err
		}

		var err error
		if write.Delete {
			err = w.target.DeleteOne(ctx, write)
		} else {
			err = w.target.ReplaceOne(ctx, write)
		}
		if err != nil {
			return idx, fmt.Errorf("write of _id[%v] failed after %d of %d writes: %w", write.ID, idx, len(writes), err)
		}
	}

	return len(writes), nil
}
