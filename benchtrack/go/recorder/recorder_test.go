package recorder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/benchtrack/infra/go/now"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mockTime = time.Unix(1700000000, 0).UTC()

func testCtx() context.Context {
	return now.WithTime(context.Background(), mockTime)
}

func TestParseResults_Array(t *testing.T) {
	r, err := ParseResults([]byte(` [{"name": "BenchmarkFib", "value": 12.5, "unit": "ns/op", "range": "± 1%"}]`))
	require.NoError(t, err)
	assert.Equal(t, []types.Measurement{{Name: "BenchmarkFib", Value: 12.5, Unit: "ns/op", Range: "± 1%"}}, r.Benches)
	assert.Nil(t, r.Extra)
}

func TestParseResults_Object(t *testing.T) {
	r, err := ParseResults([]byte(`{
  "benches": [{"name": "test_parse", "value": 3000, "unit": "iter/sec", "group": "parser", "extra": "rounds: 5"}],
  "extra": {"pythonVersion": "3.12"},
  "cpu": {"speed": "2.50", "cores": 8, "physicalCores": 4, "processors": 1}
}`))
	require.NoError(t, err)
	require.Len(t, r.Benches, 1)
	assert.Equal(t, "parser", r.Benches[0].Group)
	assert.Equal(t, "3.12", r.Extra["pythonVersion"])
	assert.Equal(t, 8, r.CPU.Cores)
}

func TestParseResults_Malformed_ReturnsError(t *testing.T) {
	_, err := ParseResults([]byte(`{"benches": [`))
	require.Error(t, err)
}

func TestReadResults_MissingFile_ReturnsError(t *testing.T) {
	_, err := ReadResults(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestReadResults_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "a", "value": 1, "unit": "ms"}]`), 0644))
	r, err := ReadResults(path)
	require.NoError(t, err)
	assert.Len(t, r.Benches, 1)
}

func TestNewSuite_AddsMetadataAndDate(t *testing.T) {
	results := &Results{
		Benches: []types.Measurement{{Name: "a", Value: 1, Unit: "ms"}},
		Extra:   map[string]string{"pythonVersion": "3.12"},
	}
	s, err := NewSuite(testCtx(), types.Commit{ID: "c1"}, results, Options{Tool: "pytest", Metadata: "run 7"})
	require.NoError(t, err)
	assert.Equal(t, mockTime.UnixMilli(), s.Date)
	assert.Equal(t, "pytest", s.Tool)
	assert.Equal(t, map[string]string{"pythonVersion": "3.12", MetadataKey: "run 7"}, s.Extra)
	_, ok := results.Extra[MetadataKey]
	assert.False(t, ok)
}

func TestNewSuite_NoMeasurements_ReturnsEmptyResultError(t *testing.T) {
	_, err := NewSuite(testCtx(), types.Commit{ID: "c1"}, &Results{}, Options{Source: "out.json"})
	var empty types.EmptyResultError
	require.True(t, errors.As(err, &empty))
	assert.Contains(t, err.Error(), "out.json")
}

type fakeStore struct {
	prev *types.Suite
	err  error
	log  *[]string
}

func (f *fakeStore) Write(ctx context.Context, suite *types.Suite) (*types.Suite, error) {
	*f.log = append(*f.log, "write "+suite.Commit.ID)
	return f.prev, f.err
}

type fakeDispatcher struct {
	err error
	log *[]string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, current, previous *types.Suite) error {
	p := "<nil>"
	if previous != nil {
		p = previous.Commit.ID
	}
	*f.log = append(*f.log, "dispatch "+current.Commit.ID+" vs "+p)
	return f.err
}

func TestRecord_DispatchesAfterWrite(t *testing.T) {
	var log []string
	prev := &types.Suite{Commit: types.Commit{ID: "c1"}}
	r := New(&fakeStore{prev: prev, log: &log}, &fakeDispatcher{log: &log})

	got, err := r.Record(testCtx(), "Benchmark", &types.Suite{Commit: types.Commit{ID: "c2"}})
	require.NoError(t, err)
	assert.Equal(t, prev, got)
	assert.Equal(t, []string{"write c2", "dispatch c2 vs c1"}, log)
}

func TestRecord_WriteFails_DoesNotDispatch(t *testing.T) {
	var log []string
	r := New(&fakeStore{err: errors.New("rejected"), log: &log}, &fakeDispatcher{log: &log})

	_, err := r.Record(testCtx(), "Benchmark", &types.Suite{Commit: types.Commit{ID: "c2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
	assert.Equal(t, []string{"write c2"}, log)
}

func TestRecord_DispatchFails_ReturnsPreviousAndError(t *testing.T) {
	var log []string
	prev := &types.Suite{Commit: types.Commit{ID: "c1"}}
	r := New(&fakeStore{prev: prev, log: &log}, &fakeDispatcher{err: errors.New("threshold"), log: &log})

	got, err := r.Record(testCtx(), "Benchmark", &types.Suite{Commit: types.Commit{ID: "c2"}})
	require.Error(t, err)
	assert.Equal(t, prev, got)
}

func TestRecord_NilDispatcher_OnlyWrites(t *testing.T) {
	var log []string
	r := New(&fakeStore{log: &log}, nil)

	got, err := r.Record(testCtx(), "Benchmark", &types.Suite{Commit: types.Commit{ID: "c2"}})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []string{"write c2"}, log)
}
