package store

import (
	"context"

	"github.com/benchtrack/infra/benchtrack/go/datafile"
	"github.com/benchtrack/infra/benchtrack/go/history"
	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/benchtrack/infra/go/sklog"
)

// FileStore keeps the history in a plain JSON file.
type FileStore struct {
	// Path of the JSON file.
	Path string

	// Name of the benchmark suite entry to append to.
	Name string

	// MaxEntries limits the number of suites kept per entry. Zero means no
	// limit.
	MaxEntries int

	// RepoURL is recorded in the history document.
	RepoURL string

	// Save controls whether the merged history is written back. When false
	// Write only computes the previous suite.
	Save bool
}

// Write implements Store.
func (f *FileStore) Write(ctx context.Context, suite *types.Suite) (*types.Suite, error) {
	doc := datafile.Load(f.Path, datafile.JSON)
	merged, prev := history.Merge(ctx, doc, f.Name, suite, f.MaxEntries, f.RepoURL)
	if !f.Save {
		sklog.Debugf("Skipping storing benchmarks in external data file")
		return prev, nil
	}
	if err := datafile.Store(f.Path, merged, datafile.JSON); err != nil {
		return nil, err
	}
	return prev, nil
}

var _ Store = (*FileStore)(nil)
