package abstract

import (
	"context"
	"testing"

	"github.com/datazip-inc/fimo/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBatch(values ...int64) *types.Batch {
	batch := &types.Batch{}
	for _, record := range records(values...) {
		batch.Items = append(batch.Items, types.BatchItem{
			Write:      types.WriteModel{ID: record.ID, Document: record.Document},
			Checkpoint: record.Position(testField),
		})
	}
	return batch
}

func TestBatchWriterApply(t *testing.T) {
	testCases := []struct {
		name        string
		capability  types.TargetCapability
		failOn      int
		expected    int
		wantErr     bool
		bulkCalls   int
		singleCalls int
	}{
		{name: "bulk", capability: types.BulkCapable, failOn: -1, expected: 4, bulkCalls: 1},
		{name: "legacy", capability: types.LegacyOnly, failOn: -1, expected: 4, singleCalls: 4},
		{name: "bulk stops at failed write", capability: types.BulkCapable, failOn: 2, expected: 2, wantErr: true, bulkCalls: 1},
		{name: "legacy stops at failed write", capability: types.LegacyOnly, failOn: 2, expected: 2, wantErr: true, singleCalls: 3},
		{name: "bulk fails first write", capability: types.BulkCapable, failOn: 0, expected: 0, wantErr: true, bulkCalls: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			target := newFakeTarget("8.0.0")
			target.failOn = tc.failOn

			applied, err := NewBatchWriter(target).Apply(context.Background(), writeBatch(1, 2, 3, 4), tc.capability)
			if tc.wantErr {
				require.ErrorIs(t, err, errWriteRejected)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expected, applied)
			assert.Len(t, target.docs, tc.expected, "nothing after the applied prefix reaches the target")
			assert.Equal(t, tc.bulkCalls, target.bulkCalls)
			assert.Equal(t, tc.singleCalls, target.singleCalls)
		})
	}
}

func TestBatchWriterIdempotent(t *testing.T) {
	target := newFakeTarget("7.0.0")
	writer := NewBatchWriter(target)
	batch := writeBatch(1, 2, 3)

	for i := 0; i < 2; i++ {
		applied, err := writer.Apply(context.Background(), batch, types.LegacyOnly)
		require.NoError(t, err)
		assert.Equal(t, 3, applied)
	}
	assert.Len(t, target.docs, 3, "replaying a batch converges to the same target")
}

func TestBatchWriterEmpty(t *testing.T) {
	target := newFakeTarget("8.0.0")
	applied, err := NewBatchWriter(target).Apply(context.Background(), &types.Batch{}, types.BulkCapable)
	require.NoError(t, err)
	assert.Zero(t, applied)
	assert.Zero(t, target.bulkCalls, "an empty batch never reaches the target")
}

func TestBatchWriterCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	target := newFakeTarget("7.0.0")
	applied, err := NewBatchWriter(target).Apply(ctx, writeBatch(1, 2), types.LegacyOnly)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, applied)
}
