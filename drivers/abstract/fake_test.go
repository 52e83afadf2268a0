package abstract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/datazip-inc/fimo/checkpoint"
	"github.com/datazip-inc/fimo/types"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testField = "seq"

var errWriteRejected = errors.New("write rejected")

// fakeSource serves a sorted collection and an append only change log
type fakeSource struct {
	records []types.SourceRecord
	events  []types.ChangeEvent
	expired map[string]bool

	fetchErrs  []error
	streamErrs []error
	opened     []types.ResumeToken
	fetches    int
}

func (s *fakeSource) FetchAfter(_ context.Context, query types.RangeQuery) ([]types.SourceRecord, error) {
	s.fetches++
	if len(s.fetchErrs) > 0 {
		err := s.fetchErrs[0]
		s.fetchErrs = s.fetchErrs[1:]
		return nil, err
	}

	sorted := append([]types.SourceRecord(nil), s.records...)
	sort.Slice(sorted, func(i, j int) bool {
		return types.ComparePositions(sorted[i].Position(query.Field), sorted[j].Position(query.Field)) < 0
	})

	var page []types.SourceRecord
	for _, record := range sorted {
		if len(page) == query.Limit {
			break
		}
		if matches(query, record) {
			page = append(page, record)
		}
	}
	return page, nil
}

// matches is the range predicate drivers implement:
// value > held OR (value == held AND _id > held _id)
func matches(query types.RangeQuery, record types.SourceRecord) bool {
	if query.After == nil {
		return true
	}
	return types.ComparePositions(record.Position(query.Field), query.After) > 0
}

func (s *fakeSource) OpenChangeStream(_ context.Context, token types.ResumeToken) (ChangeStream, error) {
	s.opened = append(s.opened, token)
	if len(token) == 0 {
		return &fakeStream{source: s, next: len(s.events), origin: s.head()}, nil
	}
	if s.expired[string(token)] {
		return nil, types.ResumeTokenExpired.New("token %s fell off the oplog", token)
	}
	if string(token) == string(eventToken(0)) {
		return &fakeStream{source: s, next: 0}, nil
	}
	for idx, event := range s.events {
		if string(event.Token) == string(token) {
			return &fakeStream{source: s, next: idx + 1}, nil
		}
	}

	return nil, types.ResumeTokenExpired.New("unknown token %s", token)
}

func (s *fakeSource) head() types.ResumeToken {
	if len(s.events) == 0 {
		return eventToken(0)
	}
	return s.events[len(s.events)-1].Token
}

func (s *fakeSource) emit(operation types.OperationType, id primitive.ObjectID, value int64) {
	event := types.ChangeEvent{
		Operation:  operation,
		DocumentID: id,
		Token:      eventToken(len(s.events) + 1),
	}
	if operation != types.Delete {
		event.Document = document(id, value)
	}
	s.events = append(s.events, event)
}

type fakeStream struct {
	source *fakeSource
	next   int
	origin types.ResumeToken
	closed bool
}

func (f *fakeStream) Next(_ context.Context) (types.ChangeEvent, bool, error) {
	if len(f.source.streamErrs) > 0 {
		err := f.source.streamErrs[0]
		f.source.streamErrs = f.source.streamErrs[1:]
		return types.ChangeEvent{}, false, err
	}
	if f.next >= len(f.source.events) {
		return types.ChangeEvent{}, false, nil
	}

	event := f.source.events[f.next]
	f.next++
	return event, true, nil
}

func (f *fakeStream) Buffered() bool {
	return f.next < len(f.source.events)
}

func (f *fakeStream) ResumeToken() types.ResumeToken {
	return f.origin
}

func (f *fakeStream) Close(_ context.Context) error {
	f.closed = true
	return nil
}

// fakeTarget applies writes to an in memory collection keyed by _id
type fakeTarget struct {
	version    string
	versionErr error
	docs       map[any]bson.Raw
	applied    []types.WriteModel
	// ordinal of the applied write that fails once; negative disables
	failOn int
	// called after every applied write with the number applied so far
	onApply     func(applied int)
	bulkCalls   int
	singleCalls int
}

func newFakeTarget(version string) *fakeTarget {
	return &fakeTarget{version: version, docs: map[any]bson.Raw{}, failOn: -1}
}

func (t *fakeTarget) ServerVersion(_ context.Context) (string, error) {
	return t.version, t.versionErr
}

func (t *fakeTarget) BulkWrite(_ context.Context, writes []types.WriteModel) (int, error) {
	t.bulkCalls++
	for idx, write := range writes {
		if err := t.apply(write); err != nil {
			return idx, err
		}
	}
	return len(writes), nil
}

func (t *fakeTarget) ReplaceOne(_ context.Context, write types.WriteModel) error {
	t.singleCalls++
	return t.apply(write)
}

func (t *fakeTarget) DeleteOne(_ context.Context, write types.WriteModel) error {
	t.singleCalls++
	return t.apply(write)
}

func (t *fakeTarget) apply(write types.WriteModel) error {
	if t.failOn == len(t.applied) {
		t.failOn = -1
		return errWriteRejected
	}

	if write.Delete {
		delete(t.docs, write.ID)
	} else {
		t.docs[write.ID] = write.Document
	}
	t.applied = append(t.applied, write)
	if t.onApply != nil {
		t.onApply(len(t.applied))
	}
	return nil
}

// recordingStore keeps every persisted checkpoint
type recordingStore struct {
	*checkpoint.MemoryStore
	history     []types.Checkpoint
	persistErrs []error
}

func newRecordingStore(mode types.SyncMode, field string) *recordingStore {
	return &recordingStore{MemoryStore: checkpoint.NewMemoryStore(mode, field, nil)}
}

func (s *recordingStore) Persist(cp types.Checkpoint) error {
	if len(s.persistErrs) > 0 {
		err := s.persistErrs[0]
		s.persistErrs = s.persistErrs[1:]
		return err
	}
	if err := s.MemoryStore.Persist(cp); err != nil {
		return err
	}
	s.history = append(s.history, cp)
	return nil
}

type countingReporter struct {
	beats int
	// cancels the run after this many beats when set
	stopAfter int
	cancel    context.CancelFunc
}

func (r *countingReporter) Beat() error {
	r.beats++
	if r.cancel != nil && r.beats >= r.stopAfter {
		r.cancel()
	}
	return nil
}

// recordingSleep records delays and cancels after stopAfter sleeps
func recordingSleep(cancel context.CancelFunc, stopAfter int, delays *[]time.Duration) func(ctx context.Context, delay time.Duration) error {
	return func(ctx context.Context, delay time.Duration) error {
		*delays = append(*delays, delay)
		if len(*delays) >= stopAfter {
			cancel()
		}
		return ctx.Err()
	}
}

func eventToken(n int) types.ResumeToken {
	return types.ResumeToken(fmt.Sprintf(`{"_data":"%04d"}`, n))
}

func objectID(n int) primitive.ObjectID {
	return primitive.NewObjectIDFromTimestamp(time.Unix(int64(1_700_000_000+n), 0))
}

func document(id primitive.ObjectID, value int64) bson.Raw {
	raw, err := bson.Marshal(bson.D{{Key: "_id", Value: id}, {Key: testField, Value: value}})
	if err != nil {
		panic(err)
	}
	return raw
}

// records builds one document per value, ids ascending in slice order
func records(values ...int64) []types.SourceRecord {
	result := make([]types.SourceRecord, 0, len(values))
	for idx, value := range values {
		id := objectID(idx)
		result = append(result, types.SourceRecord{ID: id, Value: types.NewIntScalar(value), Document: document(id, value)})
	}
	return result
}

func seqOf(t *testing.T, raw bson.Raw) int64 {
	t.Helper()

	value, err := raw.LookupErr(testField)
	require.NoError(t, err)
	return value.Int64()
}
