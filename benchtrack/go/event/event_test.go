package event

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pushPayload = `{
  "ref": "refs/heads/main",
  "head_commit": {
    "id": "a7e2b1c",
    "tree_id": "f00",
    "distinct": true,
    "message": "Speed up parser",
    "timestamp": "2024-05-01T12:30:00+09:00",
    "url": "https://github.com/owner/repo/commit/a7e2b1c",
    "author": {"name": "Ada", "email": "ada@example.com", "username": "ada"},
    "committer": {"name": "GitHub", "email": "noreply@github.com", "username": "web-flow"}
  },
  "repository": {
    "name": "repo",
    "full_name": "owner/repo",
    "private": true,
    "html_url": "https://github.com/owner/repo",
    "created_at": 1700000000,
    "owner": {"name": "owner", "email": "owner@example.com"}
  }
}`

const pullRequestPayload = `{
  "action": "synchronize",
  "number": 7,
  "pull_request": {
    "title": "Faster hashing",
    "html_url": "https://github.com/owner/repo/pull/7",
    "head": {
      "sha": "b8f3c2d",
      "user": {"login": "grace"},
      "repo": {"updated_at": "2024-05-02T08:00:00Z"}
    }
  },
  "repository": {
    "name": "repo",
    "private": false,
    "html_url": "https://github.com/owner/repo",
    "owner": {"login": "owner"}
  }
}`

func env(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}

func TestParse_PushEvent_UsesHeadCommit(t *testing.T) {
	ctx, err := Parse([]byte(pushPayload), env(map[string]string{
		EnvWorkflow: "Benchmark",
	}))
	require.NoError(t, err)

	assert.Equal(t, types.Commit{
		ID:        "a7e2b1c",
		Message:   "Speed up parser",
		Timestamp: "2024-05-01T12:30:00+09:00",
		URL:       "https://github.com/owner/repo/commit/a7e2b1c",
		Author:    types.User{Name: "Ada", Email: "ada@example.com", Username: "ada"},
		Committer: types.User{Name: "GitHub", Email: "noreply@github.com", Username: "web-flow"},
	}, ctx.Commit)
	assert.Equal(t, "owner", ctx.Owner)
	assert.Equal(t, "repo", ctx.Repo)
	assert.True(t, ctx.Private)
	assert.Equal(t, "https://github.com/owner/repo", ctx.RepoURL)
	assert.Equal(t, "https://github.com", ctx.ServerURL)
	assert.Equal(t, "Benchmark", ctx.Workflow)
}

func TestParse_PullRequestEvent_UsesHeadOfPullRequest(t *testing.T) {
	ctx, err := Parse([]byte(pullRequestPayload), env(nil))
	require.NoError(t, err)

	assert.Equal(t, types.Commit{
		ID:        "b8f3c2d",
		Message:   "Faster hashing",
		Timestamp: "2024-05-02T08:00:00Z",
		URL:       "https://github.com/owner/repo/pull/7/commits/b8f3c2d",
		Author:    types.User{Username: "grace"},
		Committer: types.User{Username: "grace"},
	}, ctx.Commit)
	assert.Equal(t, "owner", ctx.Owner)
	assert.False(t, ctx.Private)
}

func TestParse_NoCommit_ReturnsMissingMetadataError(t *testing.T) {
	_, err := Parse([]byte(`{"action": "created", "repository": {"name": "repo"}}`), env(nil))
	var missing *MissingMetadataError
	require.True(t, errors.As(err, &missing))
}

func TestParse_NoRepositoryInPayload_FallsBackToEnv(t *testing.T) {
	payload := `{"head_commit": {"id": "abc", "message": "m"}}`
	ctx, err := Parse([]byte(payload), env(map[string]string{
		EnvRepository: "octo/bench",
		EnvServerURL:  "https://ghe.example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, "octo", ctx.Owner)
	assert.Equal(t, "bench", ctx.Repo)
	assert.Equal(t, "https://ghe.example.com/octo/bench", ctx.RepoURL)
	assert.Equal(t, "https://ghe.example.com", ctx.Remote().ServerURL)
}

func TestFromEnv_ReadsEventPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(pushPayload), 0644))

	ctx, err := FromEnv(env(map[string]string{EnvEventPath: path}))
	require.NoError(t, err)
	assert.Equal(t, "a7e2b1c", ctx.Commit.ID)
}

func TestFromEnv_NoEventPath_ReturnsMissingMetadataError(t *testing.T) {
	_, err := FromEnv(env(nil))
	var missing *MissingMetadataError
	require.True(t, errors.As(err, &missing))
}
