// Package history merges new benchmark suites into a HistoryDocument.
package history

import (
	"context"

	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/benchtrack/infra/go/now"
	"github.com/benchtrack/infra/go/sklog"
)

// Merge returns a copy of doc with suite appended to the entry called name,
// along with the suite that suite should be compared against.
//
// LastUpdate is set to now.Now(ctx) and RepoURL to repoURL on every call,
// even when repoURL is empty or older than what doc holds. The last writer
// always wins for these two fields.
//
// The previous suite is the newest existing suite whose commit id differs
// from suite's, so re-running benchmarks on the same commit never compares a
// commit against itself. It is nil when the entry is new or every existing
// suite has the same commit id.
//
// If maxEntries is positive the entry is truncated to its maxEntries most
// recent suites. doc is not modified.
func Merge(ctx context.Context, doc *types.HistoryDocument, name string, suite *types.Suite, maxEntries int, repoURL string) (*types.HistoryDocument, *types.Suite) {
	ret := doc.Copy()
	ret.LastUpdate = now.UnixMillis(ctx)
	ret.RepoURL = repoURL

	suites, ok := ret.Entries[name]
	if !ok {
		ret.Entries[name] = types.Suites{suite}
		sklog.Debugf("No suite was found for benchmark %q in existing data. Created", name)
		return ret, nil
	}

	prev := Previous(suites, suite.Commit.ID)

	suites = append(suites, suite)
	if maxEntries > 0 && len(suites) > maxEntries {
		suites = suites[len(suites)-maxEntries:]
		sklog.Debugf("Number of data items for %q was truncated to %d", name, maxEntries)
	}
	ret.Entries[name] = suites
	return ret, prev
}

// Previous returns the newest suite in suites whose commit id is not
// commitID, or nil if there is none.
func Previous(suites types.Suites, commitID string) *types.Suite {
	for i := len(suites) - 1; i >= 0; i-- {
		if suites[i].Commit.ID != commitID {
			return suites[i]
		}
	}
	return nil
}
