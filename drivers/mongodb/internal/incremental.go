package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/datazip-inc/fimo/constants"
	"github.com/datazip-inc/fimo/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FetchAfter reads the next page ordered by (field, _id)
func (m *Mongo) FetchAfter(ctx context.Context, query types.RangeQuery) ([]types.SourceRecord, error) {
	filter, err := rangeFilter(query)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(rangeSort(query)).SetLimit(int64(query.Limit))

	cursor, err := m.sourceCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query %s after %s: %w", m.config.Source.Namespace(), describeAfter(query), err))
	}
	defer cursor.Close(ctx)

	records := make([]types.SourceRecord, 0, query.Limit)
	for cursor.Next(ctx) {
		record, err := toSourceRecord(query.Field, cursor.Current)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := cursor.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to iterate %s: %w", m.config.Source.Namespace(), err))
	}

	return records, nil
}

// rangeFilter renders value > v OR (value == v AND _id > id); on _id the second term is redundant
func rangeFilter(query types.RangeQuery) (bson.D, error) {
	if query.After == nil {
		return bson.D{{Key: query.Field, Value: bson.D{{Key: "$exists", Value: true}}}}, nil
	}

	value, err := scalarValue(query.After.Value)
	if err != nil {
		return nil, err
	}
	if query.OnPrimaryKey() {
		return bson.D{{Key: constants.MongoPrimaryID, Value: bson.D{{Key: "$gt", Value: value}}}}, nil
	}

	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: query.Field, Value: bson.D{{Key: "$gt", Value: value}}}},
		bson.D{
			{Key: query.Field, Value: value},
			{Key: constants.MongoPrimaryID, Value: bson.D{{Key: "$gt", Value: query.After.LastID}}},
		},
	}}}, nil
}

func rangeSort(query types.RangeQuery) bson.D {
	if query.OnPrimaryKey() {
		return bson.D{{Key: constants.MongoPrimaryID, Value: 1}}
	}

	return bson.D{{Key: query.Field, Value: 1}, {Key: constants.MongoPrimaryID, Value: 1}}
}

func scalarValue(scalar types.Scalar) (any, error) {
	switch scalar.Kind {
	case types.ObjectIDKind:
		return scalar.ObjectID, nil
	case types.DateKind:
		return primitive.NewDateTimeFromTime(scalar.Time), nil
	case types.IntKind:
		return scalar.Int, nil
	case types.StringKind:
		return scalar.Str, nil
	default:
		return nil, types.CheckpointMismatch.New("unsupported cursor value kind [%s]", scalar.Kind)
	}
}

func toSourceRecord(field string, raw bson.Raw) (types.SourceRecord, error) {
	idValue, err := raw.LookupErr(constants.MongoPrimaryID)
	if err != nil {
		return types.SourceRecord{}, fmt.Errorf("document has no _id: %w", err)
	}
	id, ok := idValue.ObjectIDOK()
	if !ok {
		return types.SourceRecord{}, fmt.Errorf("document _id %s is a %s, expected an ObjectId", idValue, idValue.Type)
	}

	fieldValue, err := raw.LookupErr(strings.Split(field, ".")...)
	if err != nil {
		return types.SourceRecord{}, fmt.Errorf("document %s has no field [%s]: %w", id.Hex(), field, err)
	}
	value, err := toScalar(fieldValue)
	if err != nil {
		return types.SourceRecord{}, fmt.Errorf("document %s: field [%s]: %w", id.Hex(), field, err)
	}

	document := make(bson.Raw, len(raw))
	copy(document, raw)
	return types.SourceRecord{ID: id, Value: value, Document: document}, nil
}

func toScalar(value bson.RawValue) (types.Scalar, error) {
	switch value.Type {
	case bsontype.ObjectID:
		return types.NewObjectIDScalar(value.ObjectID()), nil
	case bsontype.DateTime:
		return types.NewDateScalar(time.UnixMilli(value.DateTime())), nil
	case bsontype.Int32:
		return types.NewIntScalar(int64(value.Int32())), nil
	case bsontype.Int64:
		return types.NewIntScalar(value.Int64()), nil
	case bsontype.String:
		return types.NewStringScalar(value.StringValue()), nil
	default:
		return types.Scalar{}, fmt.Errorf("unsupported cursor type %s", value.Type)
	}
}

func describeAfter(query types.RangeQuery) string {
	if query.After == nil {
		return "start of collection"
	}
	return query.After.String()
}
