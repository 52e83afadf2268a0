package types

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OperationType string

const (
	Insert  OperationType = "insert"
	Update  OperationType = "update"
	Replace OperationType = "replace"
	Delete  OperationType = "delete"
)

// ChangeEvent is one mutation observed on the source change stream
type ChangeEvent struct {
	Operation OperationType
	// DocumentID is the _id of the changed document, as decoded by the driver
	DocumentID any
	// Document is the post image; nil for deletes
	Document bson.Raw
	// Token resumes the stream right after this event
	Token ResumeToken
}

// WriteModel maps the event onto the target. Updates whose post image is gone
// (document deleted before lookup) become deletes.
func (e ChangeEvent) WriteModel() WriteModel {
	if e.Operation == Delete || e.Document == nil {
		return WriteModel{Delete: true, ID: e.DocumentID}
	}

	return WriteModel{ID: e.DocumentID, Document: e.Document}
}

// SourceRecord is one document read by the field incremental strategy
type SourceRecord struct {
	ID       primitive.ObjectID
	Value    Scalar
	Document bson.Raw
}

// Position returns the cursor position right after this record
func (r SourceRecord) Position(field string) *FieldCheckpoint {
	return &FieldCheckpoint{Field: field, Value: r.Value, LastID: r.ID}
}

// WriteModel is one idempotent mutation of the target keyed by document identity
type WriteModel struct {
	Delete   bool
	ID       any
	Document bson.Raw
}

type BatchItem struct {
	Write WriteModel
	// Checkpoint is the position to persist once this item and all items before it are applied
	Checkpoint Checkpoint
}

// Batch is an ordered run of writes in source order
type Batch struct {
	Items []BatchItem
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Items)
}

func (b *Batch) IsEmpty() bool {
	return b.Len() == 0
}

func (b *Batch) Writes() []WriteModel {
	writes := make([]WriteModel, 0, b.Len())
	for _, item := range b.Items {
		writes = append(writes, item.Write)
	}

	return writes
}

// CheckpointAfter returns the checkpoint covering the first applied items, nil when nothing was applied
func (b *Batch) CheckpointAfter(applied int) Checkpoint {
	if applied <= 0 || b.Len() == 0 {
		return nil
	}
	if applied > b.Len() {
		applied = b.Len()
	}

	return b.Items[applied-1].Checkpoint
}

// RangeQuery selects documents strictly after a (value, _id) position, ascending, capped at Limit
type RangeQuery struct {
	Field string
	// After is nil when reading from the beginning of the collection
	After *FieldCheckpoint
	Limit int
}

// OnPrimaryKey reports whether the sync field is _id itself, where the tie-break term is redundant
func (q RangeQuery) OnPrimaryKey() bool {
	return q.Field == "_id"
}
