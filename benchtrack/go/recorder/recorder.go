// Package recorder records one benchmark run: it turns the measurements into
// a suite, writes it to the history and only then sends notifications.
package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"github.com/benchtrack/infra/benchtrack/go/report"
	"github.com/benchtrack/infra/benchtrack/go/store"
	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/benchtrack/infra/go/now"
	"github.com/benchtrack/infra/go/skerr"
	"github.com/benchtrack/infra/go/sklog"
)

// MetadataKey is the key of the suite extra that holds user metadata.
const MetadataKey = "gh-metadata"

// Results is the content of a results file. The file is either a JSON
// array of measurements or an object in this shape.
type Results struct {
	Benches []types.Measurement `json:"benches"`
	Extra   map[string]string   `json:"extra,omitempty"`
	CPU     *types.CPU          `json:"cpu,omitempty"`
}

// ParseResults decodes the content of a results file.
func ParseResults(b []byte) (*Results, error) {
	trimmed := bytes.TrimSpace(b)
	ret := &Results{}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &ret.Benches); err != nil {
			return nil, skerr.Wrapf(err, "decoding measurements")
		}
		return ret, nil
	}
	if err := json.Unmarshal(trimmed, ret); err != nil {
		return nil, skerr.Wrapf(err, "decoding results")
	}
	return ret, nil
}

// ReadResults reads and decodes the results file at path.
func ReadResults(path string) (*Results, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, skerr.Wrapf(err, "reading results")
	}
	return ParseResults(b)
}

// Options describes the suite being recorded.
type Options struct {
	Tool     string
	Metadata string

	// Source names where the results came from, for error messages.
	Source string
}

// NewSuite builds the suite to record from results. The capture time comes
// from ctx.
func NewSuite(ctx context.Context, commit types.Commit, results *Results, opts Options) (*types.Suite, error) {
	suite, err := types.NewSuite(commit, now.UnixMillis(ctx), results.Benches, opts.Source)
	if err != nil {
		return nil, err
	}
	suite.Tool = opts.Tool
	suite.CPU = results.CPU
	if len(results.Extra) > 0 || opts.Metadata != "" {
		suite.Extra = map[string]string{}
		for k, v := range results.Extra {
			suite.Extra[k] = v
		}
		if opts.Metadata != "" {
			suite.Extra[MetadataKey] = opts.Metadata
		}
	}
	return suite, nil
}

// Dispatcher is implemented by report.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, current, previous *types.Suite) error
}

// Recorder writes suites and reports on them.
type Recorder struct {
	store      store.Store
	dispatcher Dispatcher
}

// New returns a Recorder. dispatcher may be nil to skip notifications.
func New(s store.Store, dispatcher Dispatcher) *Recorder {
	return &Recorder{
		store:      s,
		dispatcher: dispatcher,
	}
}

// Record writes suite and, once the write has succeeded, sends the
// notifications comparing it with the previous suite. It returns the
// previous suite, which is nil for the first result of a benchmark.
func (r *Recorder) Record(ctx context.Context, name string, suite *types.Suite) (*types.Suite, error) {
	prev, err := r.store.Write(ctx, suite)
	if err != nil {
		return nil, skerr.Wrapf(err, "writing %q result for %s", name, suite.Commit.ID)
	}
	if prev == nil {
		sklog.Infof("No previous benchmark result was found for %q", name)
	} else {
		sklog.Infof("Recorded %q for %s, previous result was for %s", name, suite.Commit.ID, prev.Commit.ID)
	}
	if r.dispatcher == nil {
		return prev, nil
	}
	if err := r.dispatcher.Dispatch(ctx, suite, prev); err != nil {
		return prev, err
	}
	return prev, nil
}

var _ Dispatcher = (*report.Dispatcher)(nil)
