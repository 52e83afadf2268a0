package types

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ScalarKind string

const (
	ObjectIDKind ScalarKind = "objectid"
	DateKind     ScalarKind = "date"
	IntKind      ScalarKind = "int"
	StringKind   ScalarKind = "string"
)

var scalarKindAliases = map[string]ScalarKind{
	"objectid":  ObjectIDKind,
	"oid":       ObjectIDKind,
	"date":      DateKind,
	"datetime":  DateKind,
	"timestamp": DateKind,
	"int":       IntKind,
	"integer":   IntKind,
	"long":      IntKind,
	"string":    StringKind,
}

// rank orders kinds the way MongoDB orders BSON types; only used when a field mixes kinds
var scalarKindRank = map[ScalarKind]int{
	StringKind:   1,
	ObjectIDKind: 2,
	DateKind:     3,
	IntKind:      0,
}

func ParseScalarKind(value string) (ScalarKind, error) {
	kind, found := scalarKindAliases[strings.ToLower(strings.TrimSpace(value))]
	if !found {
		return "", fmt.Errorf("unsupported resume type [%s], expected one of string|int|objectid|date", value)
	}

	return kind, nil
}

// Scalar is a typed value of the sync field
type Scalar struct {
	Kind     ScalarKind
	ObjectID primitive.ObjectID
	Time     time.Time
	Int      int64
	Str      string
}

func NewObjectIDScalar(id primitive.ObjectID) Scalar {
	return Scalar{Kind: ObjectIDKind, ObjectID: id}
}

// NewDateScalar truncates to milliseconds, the precision of a BSON datetime
func NewDateScalar(t time.Time) Scalar {
	return Scalar{Kind: DateKind, Time: t.UTC().Truncate(time.Millisecond)}
}

func NewIntScalar(value int64) Scalar {
	return Scalar{Kind: IntKind, Int: value}
}

func NewStringScalar(value string) Scalar {
	return Scalar{Kind: StringKind, Str: value}
}

// ParseScalar reads the text form produced by Scalar.String
func ParseScalar(kind ScalarKind, raw string) (Scalar, error) {
	switch kind {
	case ObjectIDKind:
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
		if err != nil {
			return Scalar{}, fmt.Errorf("invalid objectid value [%s]: %s", raw, err)
		}
		return NewObjectIDScalar(id), nil
	case DateKind:
		t, err := parseDate(strings.TrimSpace(raw))
		if err != nil {
			return Scalar{}, err
		}
		return NewDateScalar(t), nil
	case IntKind:
		value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Scalar{}, fmt.Errorf("invalid int value [%s]: %s", raw, err)
		}
		return NewIntScalar(value), nil
	case StringKind:
		return NewStringScalar(raw), nil
	default:
		return Scalar{}, fmt.Errorf("unsupported scalar kind [%s]", kind)
	}
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	// epoch millis, the form the health file uses
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(millis), nil
	}

	return time.Time{}, fmt.Errorf("invalid date value [%s], expected RFC3339 or epoch millis", raw)
}

func (s Scalar) String() string {
	switch s.Kind {
	case ObjectIDKind:
		return s.ObjectID.Hex()
	case DateKind:
		return s.Time.UTC().Format(time.RFC3339Nano)
	case IntKind:
		return strconv.FormatInt(s.Int, 10)
	default:
		return s.Str
	}
}

func (s Scalar) IsZero() bool {
	return s.Kind == ""
}

// CompareScalars orders values of one kind naturally: objectids bytewise (creation time, then
// counter and random suffix), dates chronologically, ints numerically and strings bytewise.
func CompareScalars(a, b Scalar) int {
	if a.Kind != b.Kind {
		return compareInt(int64(scalarKindRank[a.Kind]), int64(scalarKindRank[b.Kind]))
	}

	switch a.Kind {
	case ObjectIDKind:
		return CompareObjectIDs(a.ObjectID, b.ObjectID)
	case DateKind:
		return a.Time.Compare(b.Time)
	case IntKind:
		return compareInt(a.Int, b.Int)
	default:
		return strings.Compare(a.Str, b.Str)
	}
}

func CompareObjectIDs(a, b primitive.ObjectID) int {
	return bytes.Compare(a[:], b[:])
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type scalarJSON struct {
	Kind  ScalarKind `json:"kind"`
	Value string     `json:"value"`
}

// MarshalJSON keeps the value in its text form so operators can hand edit checkpoint files
func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(scalarJSON{Kind: s.Kind, Value: s.String()})
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	var raw scalarJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	kind, err := ParseScalarKind(string(raw.Kind))
	if err != nil {
		return err
	}

	parsed, err := ParseScalar(kind, raw.Value)
	if err != nil {
		return err
	}

	*s = parsed
	return nil
}
