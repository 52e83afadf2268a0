package types

type SyncMode string

const (
	// ChangeStream tails the source collection change stream; propagates deletes
	ChangeStream SyncMode = "change_stream"
	// FieldIncremental polls the source collection ordered by (sync field, _id)
	FieldIncremental SyncMode = "field"
)

// CheckpointType returns the only checkpoint variant a run in this mode may resume from
func (m SyncMode) CheckpointType() CheckpointType {
	switch m {
	case ChangeStream:
		return ChangeStreamCheckpointType
	case FieldIncremental:
		return FieldCheckpointType
	default:
		return ""
	}
}

type TargetCapability string

const (
	// BulkCapable targets accept one ordered grouped write per batch
	BulkCapable TargetCapability = "bulk"
	// LegacyOnly targets receive one replace-with-upsert per document
	LegacyOnly TargetCapability = "legacy"
)
