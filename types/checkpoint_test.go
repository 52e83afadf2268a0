package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCheckpointFile(t *testing.T) {
	updatedAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	oid := primitive.NewObjectID()

	testCases := []struct {
		name       string
		checkpoint Checkpoint
	}{
		{name: "change stream", checkpoint: &ChangeStreamCheckpoint{Token: ResumeToken(`{"_data":"8265E1"}`)}},
		{name: "field on int", checkpoint: &FieldCheckpoint{Field: "seq", Value: NewIntScalar(7), LastID: oid}},
		{name: "field on date", checkpoint: &FieldCheckpoint{Field: "updatedAt", Value: NewDateScalar(updatedAt), LastID: oid}},
		{name: "field on _id", checkpoint: &FieldCheckpoint{Field: "_id", Value: NewObjectIDScalar(oid), LastID: oid}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := MarshalCheckpoint(tc.checkpoint, updatedAt)
			require.NoError(t, err)

			decoded, err := UnmarshalCheckpoint(data)
			require.NoError(t, err)
			assert.Equal(t, tc.checkpoint.Type(), decoded.Type())
			assert.Equal(t, tc.checkpoint.String(), decoded.String())
		})
	}
}

func TestCheckpointFileRejected(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{"type":`},
		{name: "unknown type", data: `{"type":"offset","token":{"_data":"00"}}`},
		{name: "missing type", data: `{"token":{"_data":"00"}}`},
		{name: "token without body", data: `{"type":"change_stream"}`},
		{name: "token that is a number", data: `{"type":"change_stream","token":8265}`},
		{name: "token that is a string", data: `{"type":"change_stream","token":"8265"}`},
		{name: "token that is null", data: `{"type":"change_stream","token":null}`},
		{name: "field without value", data: `{"type":"field","field":"seq"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := UnmarshalCheckpoint([]byte(tc.data))
			require.Error(t, err)
			assert.True(t, IsOfType(err, CheckpointMismatch), "expected checkpoint mismatch, got %v", err)
			assert.True(t, IsFatal(err))
		})
	}
}

func TestMarshalCheckpointRejectsNonDocumentToken(t *testing.T) {
	for _, token := range []string{"not-json", "8265", `"8265"`, `[1]`, "null"} {
		_, err := MarshalCheckpoint(&ChangeStreamCheckpoint{Token: ResumeToken(token)}, time.Now())
		assert.Error(t, err, "token %s", token)
	}
}

func TestResumeTokenIsDocument(t *testing.T) {
	assert.True(t, ResumeToken(`{"_data":"8265"}`).IsDocument())
	assert.True(t, ResumeToken(` {"_data": "8265"} `).IsDocument())
	assert.False(t, ResumeToken(`8265`).IsDocument())
	assert.False(t, ResumeToken(``).IsDocument())
}

func TestComparePositions(t *testing.T) {
	low := primitive.NewObjectIDFromTimestamp(time.Unix(1_700_000_000, 0))
	high := primitive.NewObjectIDFromTimestamp(time.Unix(1_700_000_001, 0))

	at := func(value int64, id primitive.ObjectID) *FieldCheckpoint {
		return &FieldCheckpoint{Field: "seq", Value: NewIntScalar(value), LastID: id}
	}

	assert.Equal(t, -1, ComparePositions(at(1, high), at(2, low)), "value decides first")
	assert.Equal(t, -1, ComparePositions(at(2, low), at(2, high)), "_id breaks ties")
	assert.Equal(t, 0, ComparePositions(at(2, low), at(2, low)))

	assert.Equal(t, 1, ComparePositions(SourceRecord{ID: low, Value: NewIntScalar(3)}.Position("seq"), at(2, high)))
}

func TestBatchCheckpointAfter(t *testing.T) {
	batch := &Batch{}
	for i := int64(1); i <= 3; i++ {
		batch.Items = append(batch.Items, BatchItem{
			Write:      WriteModel{ID: i},
			Checkpoint: &FieldCheckpoint{Field: "seq", Value: NewIntScalar(i)},
		})
	}

	assert.Nil(t, batch.CheckpointAfter(0))
	assert.Equal(t, batch.Items[1].Checkpoint, batch.CheckpointAfter(2))
	assert.Equal(t, batch.Items[2].Checkpoint, batch.CheckpointAfter(10))
	assert.Nil(t, (*Batch)(nil).CheckpointAfter(1))
	assert.True(t, (*Batch)(nil).IsEmpty())
}

func TestChangeEventWriteModel(t *testing.T) {
	document := []byte{5, 0, 0, 0, 0}
	testCases := []struct {
		name       string
		event      ChangeEvent
		wantDelete bool
	}{
		{name: "insert", event: ChangeEvent{Operation: Insert, DocumentID: 1, Document: document}},
		{name: "update with post image", event: ChangeEvent{Operation: Update, DocumentID: 1, Document: document}},
		{name: "update of a document deleted before lookup", event: ChangeEvent{Operation: Update, DocumentID: 1}, wantDelete: true},
		{name: "delete", event: ChangeEvent{Operation: Delete, DocumentID: 1}, wantDelete: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			write := tc.event.WriteModel()
			assert.Equal(t, tc.wantDelete, write.Delete)
			assert.Equal(t, tc.event.DocumentID, write.ID)
		})
	}
}
