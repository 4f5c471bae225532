// Package store persists new benchmark suites into the benchmark history.
//
// GitStore keeps the history in a branch that many CI jobs write to at once.
// There is no lock: each writer pulls, merges, commits and pushes, and when
// the push is rejected because another writer got there first it drops its
// commit and starts over from a fresh pull. FileStore keeps the history in a
// plain JSON file whose durability is the caller's business.
package store

import (
	"context"
	"fmt"

	"github.com/benchtrack/infra/benchtrack/go/types"
)

// Store adds a suite to the history.
type Store interface {
	// Write records suite and returns the suite it should be compared
	// against, which is nil if there is none.
	Write(ctx context.Context, suite *types.Suite) (*types.Suite, error)
}

// VCS is the subset of git the GitStore needs. Push must return an error
// wrapping git.ErrRemoteRejected when the remote refuses the update.
type VCS interface {
	Pull(ctx context.Context, token, branch string, options ...string) error
	Push(ctx context.Context, token, branch string, options ...string) error
	Cmd(ctx context.Context, args ...string) (string, error)
}

// RemoteDivergedError is returned when every push attempt was rejected.
type RemoteDivergedError struct {
	Branch   string
	Attempts int
	Err      error
}

func (e *RemoteDivergedError) Error() string {
	return fmt.Sprintf("auto-push failed %d times since the remote branch %s rejected pushing all the time. Last exception was: %s", e.Attempts, e.Branch, e.Err)
}

func (e *RemoteDivergedError) Unwrap() error {
	return e.Err
}

// TransportError is returned for any failing git operation other than a
// rejected push. These are never retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("git %s failed: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
