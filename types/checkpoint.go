package types

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CheckpointType string

const (
	ChangeStreamCheckpointType CheckpointType = "change_stream"
	FieldCheckpointType        CheckpointType = "field"
)

// Checkpoint is the durable replication position. Implemented only by
// *ChangeStreamCheckpoint and *FieldCheckpoint.
type Checkpoint interface {
	Type() CheckpointType
	String() string
	isCheckpoint()
}

// ResumeToken is opaque to the engine; drivers hand out JSON documents so the
// checkpoint file stays readable.
type ResumeToken []byte

// IsDocument reports whether the token is a JSON object, the only shape a change stream hands out
func (t ResumeToken) IsDocument() bool {
	var document map[string]any
	return json.Unmarshal(t, &document) == nil && document != nil
}

type ChangeStreamCheckpoint struct {
	Token ResumeToken
}

func (c *ChangeStreamCheckpoint) Type() CheckpointType {
	return ChangeStreamCheckpointType
}

func (c *ChangeStreamCheckpoint) String() string {
	return fmt.Sprintf("change_stream[token=%s]", string(c.Token))
}

func (c *ChangeStreamCheckpoint) isCheckpoint() {}

// FieldCheckpoint is the (value, _id) position of the last replicated document
type FieldCheckpoint struct {
	Field  string
	Value  Scalar
	LastID primitive.ObjectID
}

func (c *FieldCheckpoint) Type() CheckpointType {
	return FieldCheckpointType
}

func (c *FieldCheckpoint) String() string {
	return fmt.Sprintf("field[%s=%s(%s), _id=%s]", c.Field, c.Value.String(), c.Value.Kind, c.LastID.Hex())
}

func (c *FieldCheckpoint) isCheckpoint() {}

// ComparePositions orders two field checkpoints lexicographically by (value, _id)
func ComparePositions(a, b *FieldCheckpoint) int {
	if cmp := CompareScalars(a.Value, b.Value); cmp != 0 {
		return cmp
	}

	return CompareObjectIDs(a.LastID, b.LastID)
}

// checkpointFile is the on disk form; hand editable for disaster recovery
type checkpointFile struct {
	Type      CheckpointType      `json:"type"`
	Token     json.RawMessage     `json:"token,omitempty"`
	Field     string              `json:"field,omitempty"`
	Value     *Scalar             `json:"value,omitempty"`
	LastID    *primitive.ObjectID `json:"last_id,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func MarshalCheckpoint(checkpoint Checkpoint, updatedAt time.Time) ([]byte, error) {
	file := checkpointFile{
		Type:      checkpoint.Type(),
		UpdatedAt: updatedAt.UTC(),
	}

	switch cp := checkpoint.(type) {
	case *ChangeStreamCheckpoint:
		if !cp.Token.IsDocument() {
			return nil, fmt.Errorf("resume token is not a json document: %s", string(cp.Token))
		}
		file.Token = json.RawMessage(cp.Token)
	case *FieldCheckpoint:
		value, lastID := cp.Value, cp.LastID
		file.Field = cp.Field
		file.Value = &value
		file.LastID = &lastID
	default:
		return nil, fmt.Errorf("unknown checkpoint %T", checkpoint)
	}

	return json.MarshalIndent(file, "", "  ")
}

// UnmarshalCheckpoint decodes a checkpoint file; a missing or unknown type tag is a CheckpointMismatch
func UnmarshalCheckpoint(data []byte) (Checkpoint, error) {
	var file checkpointFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, CheckpointMismatch.Wrap(err, "malformed checkpoint file")
	}

	switch file.Type {
	case ChangeStreamCheckpointType:
		if len(file.Token) == 0 {
			return nil, CheckpointMismatch.New("change_stream checkpoint without token")
		}
		// tokens compare bytewise; undo the indentation of the file
		var token bytes.Buffer
		if err := json.Compact(&token, file.Token); err != nil {
			return nil, CheckpointMismatch.Wrap(err, "malformed resume token")
		}
		if !ResumeToken(token.Bytes()).IsDocument() {
			return nil, CheckpointMismatch.New("resume token is not a json document: %s", token.String())
		}
		return &ChangeStreamCheckpoint{Token: ResumeToken(token.Bytes())}, nil
	case FieldCheckpointType:
		if file.Value == nil || file.Value.IsZero() {
			return nil, CheckpointMismatch.New("field checkpoint without value")
		}
		checkpoint := &FieldCheckpoint{Field: file.Field, Value: *file.Value}
		if file.LastID != nil {
			checkpoint.LastID = *file.LastID
		}
		return checkpoint, nil
	default:
		return nil, CheckpointMismatch.New("checkpoint declares unknown type [%s]", file.Type)
	}
}
