package checkpoint

import (
	"strings"

	"github.com/datazip-inc/fimo/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const tokenOverrideType = "token"

// Resolve returns the checkpoint the run starts from. An operator override wins over the stored
// checkpoint; the stored one must match the configured mode.
func Resolve(store Store, config *types.SyncConfig) (types.Checkpoint, bool, error) {
	if config.Override != nil && config.Override.Value != "" {
		checkpoint, err := ParseOverride(config.Override, config.Mode, config.SyncField)
		return checkpoint, true, err
	}

	checkpoint, err := store.Load()
	return checkpoint, false, err
}

// ParseOverride turns CLI resume flags into a checkpoint. Field mode values must declare one of the
// four scalar types since a bare value is ambiguous ("42" may be a string).
func ParseOverride(override *types.Override, mode types.SyncMode, field string) (types.Checkpoint, error) {
	switch mode {
	case types.ChangeStream:
		if override.Type != "" && !strings.EqualFold(override.Type, tokenOverrideType) {
			return nil, types.InvalidConfig.New("resume type [%s] is not valid for change stream mode, pass the resume token document as resume value", override.Type)
		}
		if override.LastID != "" {
			return nil, types.InvalidConfig.New("resume id is only valid in field mode")
		}
		token := types.ResumeToken(strings.TrimSpace(override.Value))
		if !token.IsDocument() {
			return nil, types.InvalidConfig.New("resume value is not a json resume token: %s", override.Value)
		}
		return &types.ChangeStreamCheckpoint{Token: token}, nil
	case types.FieldIncremental:
		if override.Type == "" {
			return nil, types.InvalidConfig.New("resume value [%s] needs an explicit resume type (string|int|objectid|date)", override.Value)
		}
		kind, err := types.ParseScalarKind(override.Type)
		if err != nil {
			return nil, types.InvalidConfig.Wrap(err, "invalid resume type")
		}
		value, err := types.ParseScalar(kind, override.Value)
		if err != nil {
			return nil, types.InvalidConfig.Wrap(err, "invalid resume value")
		}

		checkpoint := &types.FieldCheckpoint{Field: field, Value: value}
		if override.LastID != "" {
			lastID, err := primitive.ObjectIDFromHex(override.LastID)
			if err != nil {
				return nil, types.InvalidConfig.Wrap(err, "invalid resume id [%s]", override.LastID)
			}
			checkpoint.LastID = lastID
		} else if field == "_id" && kind == types.ObjectIDKind {
			checkpoint.LastID = value.ObjectID
		}
		return checkpoint, nil
	default:
		return nil, types.InvalidConfig.New("unknown sync mode [%s]", mode)
	}
}
