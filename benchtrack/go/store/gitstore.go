package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/benchtrack/infra/benchtrack/go/assets"
	"github.com/benchtrack/infra/benchtrack/go/datafile"
	"github.com/benchtrack/infra/benchtrack/go/history"
	"github.com/benchtrack/infra/benchtrack/go/metrics"
	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/benchtrack/infra/go/git"
	"github.com/benchtrack/infra/go/skerr"
	"github.com/benchtrack/infra/go/sklog"
	"github.com/benchtrack/infra/go/util"
	"github.com/hashicorp/go-multierror"
)

const (
	// DefaultMaxRetries is the number of times a rejected push is retried.
	DefaultMaxRetries = 10

	// DataFileName is the name of the history file inside the data dir.
	DataFileName = "data.js"
)

// GitOptions configures a GitStore.
type GitOptions struct {
	// Name of the benchmark suite entry to append to.
	Name string

	// Branch holding the history, e.g. "gh-pages".
	Branch string

	// DataDir is the directory of the history file relative to the
	// working copy root.
	DataDir string

	// Token authenticates pull and push. May be empty for public repos
	// when AutoPush is false.
	Token string

	// AutoPush pushes the new commit. Without it the commit is left in the
	// local branch.
	AutoPush bool

	// SkipFetch skips updating the branch from the remote before writing.
	SkipFetch bool

	// PrivateRepo is true if the repository requires credentials to pull.
	PrivateRepo bool

	// MaxEntries limits the number of suites kept per entry. Zero means no
	// limit.
	MaxEntries int

	// MaxRetries is the number of times a rejected push is retried after
	// the first attempt. Negative selects DefaultMaxRetries.
	MaxRetries int

	// RepoURL is recorded in the history document.
	RepoURL string

	// Assets are added to DataDir if they do not exist yet.
	Assets []assets.Asset
}

// GitStore writes the history into a branch of a git working copy.
type GitStore struct {
	vcs     VCS
	workdir string
	opts    GitOptions
}

// NewGitStore returns a GitStore for the working copy in workdir.
func NewGitStore(vcs VCS, workdir string, opts GitOptions) *GitStore {
	return &GitStore{
		vcs:     vcs,
		workdir: workdir,
		opts:    opts,
	}
}

// DataPath returns the path of the history file.
func (g *GitStore) DataPath() string {
	return filepath.Join(g.workdir, g.opts.DataDir, DataFileName)
}

// Write implements Store.
//
// The branch is checked out for the duration of the call and the previous
// checkout is restored before returning, whether or not Write succeeded.
func (g *GitStore) Write(ctx context.Context, suite *types.Suite) (_ *types.Suite, retErr error) {
	branch := g.opts.Branch
	if !g.opts.SkipFetch {
		if _, err := g.vcs.Cmd(ctx, "fetch", "origin", fmt.Sprintf("%s:%s", branch, branch)); err != nil {
			return nil, &TransportError{Op: "fetch", Err: err}
		}
	}
	if _, err := g.vcs.Cmd(ctx, "switch", branch); err != nil {
		return nil, &TransportError{Op: "switch", Err: err}
	}
	defer func() {
		// "git switch" can not go back to a detached HEAD, "checkout -" can.
		if _, err := g.vcs.Cmd(ctx, "checkout", "-"); err != nil {
			err = skerr.Wrapf(err, "returning from branch %s", branch)
			if retErr == nil {
				retErr = err
			} else {
				retErr = multierror.Append(retErr, err)
			}
		}
	}()

	prev, err := g.writeWithRetry(ctx, suite)
	if err != nil {
		sklog.Errorf("Failed to add benchmark data to %q: %s", g.opts.Name, err)
		return nil, err
	}
	return prev, nil
}

// writeWithRetry runs sync, merge and commit, then pushes. A rejected push
// resets the commit and starts again from sync, at most MaxRetries times.
func (g *GitStore) writeWithRetry(ctx context.Context, suite *types.Suite) (*types.Suite, error) {
	branch := g.opts.Branch
	maxRetries := g.opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	for attempt := 1; ; attempt++ {
		metrics.StoreAttempts.WithLabelValues(branch).Inc()
		prev, err := g.commit(ctx, suite)
		if err != nil {
			return nil, err
		}
		if !g.opts.AutoPush {
			sklog.Debugf("Auto-push to %s is skipped because auto-push is not enabled", branch)
			return prev, nil
		}

		err = g.vcs.Push(ctx, g.opts.Token, branch)
		if err == nil {
			sklog.Infof("Automatically pushed the generated commit to %s branch", branch)
			return prev, nil
		}
		if !errors.Is(err, git.ErrRemoteRejected) {
			return nil, &TransportError{Op: "push", Err: err}
		}
		metrics.StoreRejections.WithLabelValues(branch).Inc()
		sklog.Warningf("Auto-push failed because the remote %s was updated after git pull", branch)

		// Drop only the commit created above. It is recomputed against
		// the fresh remote state on the next attempt.
		sklog.Debugf("Rollback the auto-generated commit")
		if _, rerr := g.vcs.Cmd(ctx, "reset", "--hard", "HEAD~1"); rerr != nil {
			return nil, &TransportError{Op: "reset", Err: rerr}
		}
		if attempt > maxRetries {
			return nil, &RemoteDivergedError{Branch: branch, Attempts: attempt, Err: err}
		}
		sklog.Warningf("Retrying to generate a commit and push to remote %s with retry count %d...", branch, maxRetries-attempt+1)
	}
}

// sync pulls the branch unless that is disabled or impossible.
func (g *GitStore) sync(ctx context.Context) error {
	if g.opts.SkipFetch {
		return nil
	}
	if g.opts.PrivateRepo && g.opts.Token == "" {
		sklog.Warningf("'git pull' was skipped. If you want to ensure the %s branch is up-to-date before generating a commit, please set a token to pull it", g.opts.Branch)
		return nil
	}
	return g.vcs.Pull(ctx, g.opts.Token, g.opts.Branch)
}

// commit syncs the branch, merges suite into the history file and commits
// the result. It returns the previous suite as seen in this attempt.
func (g *GitStore) commit(ctx context.Context, suite *types.Suite) (*types.Suite, error) {
	if err := g.sync(ctx); err != nil {
		return nil, &TransportError{Op: "pull", Err: err}
	}

	dataDir := filepath.Join(g.workdir, g.opts.DataDir)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, skerr.Wrapf(err, "creating %s", dataDir)
	}
	dataPath := g.DataPath()
	doc := datafile.Load(dataPath, datafile.Script)
	merged, prev := history.Merge(ctx, doc, g.opts.Name, suite, g.opts.MaxEntries, g.opts.RepoURL)
	if err := datafile.Store(dataPath, merged, datafile.Script); err != nil {
		return nil, err
	}
	// Paths given to git are relative to the working copy root.
	if _, err := g.vcs.Cmd(ctx, "add", filepath.Join(g.opts.DataDir, DataFileName)); err != nil {
		return nil, &TransportError{Op: "add", Err: err}
	}

	for _, asset := range g.opts.Assets {
		path := filepath.Join(dataDir, asset.Name)
		written, err := util.WriteFileIfAbsent(path, asset.Contents)
		if err != nil {
			return nil, err
		}
		if !written {
			sklog.Debugf("Skipping %s creation, since it already exists: %s", asset.Name, path)
			continue
		}
		if _, err := g.vcs.Cmd(ctx, "add", filepath.Join(g.opts.DataDir, asset.Name)); err != nil {
			return nil, &TransportError{Op: "add", Err: err}
		}
		sklog.Infof("Created default %s at %s", asset.Name, path)
	}

	msg := fmt.Sprintf("add %s benchmark result for %s", g.opts.Name, suite.Commit.ID)
	if _, err := g.vcs.Cmd(ctx, "commit", "-m", msg); err != nil {
		return nil, &TransportError{Op: "commit", Err: err}
	}
	return prev, nil
}

var _ Store = (*GitStore)(nil)
