// Package event reads the commit and repository a workflow run is about from
// the GitHub Actions environment.
package event

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/benchtrack/infra/benchtrack/go/types"
	"github.com/benchtrack/infra/go/git"
	"github.com/benchtrack/infra/go/skerr"
	"github.com/google/go-github/v29/github"
)

// Environment variables set by GitHub Actions.
const (
	EnvEventPath  = "GITHUB_EVENT_PATH"
	EnvServerURL  = "GITHUB_SERVER_URL"
	EnvAPIURL     = "GITHUB_API_URL"
	EnvRepository = "GITHUB_REPOSITORY"
	EnvWorkflow   = "GITHUB_WORKFLOW"
)

// MissingMetadataError is returned when the event carries no commit.
type MissingMetadataError struct {
	Reason string
}

func (e *MissingMetadataError) Error() string {
	return "no commit information is found in the event payload: " + e.Reason
}

// Context is everything the recorder needs to know about the triggering
// event. It is read once and passed explicitly.
type Context struct {
	Commit types.Commit

	Owner   string
	Repo    string
	RepoURL string
	Private bool

	ServerURL string
	APIURL    string
	Workflow  string
}

// Remote returns the git remote of the repository.
func (c *Context) Remote() git.Remote {
	return git.Remote{
		ServerURL: c.ServerURL,
		Owner:     c.Owner,
		Repo:      c.Repo,
	}
}

// FromEnv builds a Context from the environment of a workflow run. getenv is
// usually os.Getenv.
func FromEnv(getenv func(string) string) (*Context, error) {
	path := getenv(EnvEventPath)
	if path == "" {
		return nil, &MissingMetadataError{Reason: EnvEventPath + " is not set"}
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, skerr.Wrapf(err, "reading event payload")
	}
	return Parse(payload, getenv)
}

// Parse builds a Context from a push or pull_request event payload.
func Parse(payload []byte, getenv func(string) string) (*Context, error) {
	ret := &Context{
		ServerURL: getenv(EnvServerURL),
		APIURL:    getenv(EnvAPIURL),
		Workflow:  getenv(EnvWorkflow),
	}
	if ret.ServerURL == "" {
		ret.ServerURL = git.DefaultServerURL
	}

	var push github.PushEvent
	if err := json.Unmarshal(payload, &push); err != nil {
		return nil, skerr.Wrapf(err, "decoding event payload")
	}
	if push.HeadCommit != nil {
		ret.Commit = commitFromPush(push.GetHeadCommit())
		repo := push.GetRepo()
		ret.Owner = repo.GetOwner().GetLogin()
		if ret.Owner == "" {
			// Push payloads use "name" for the owner.
			ret.Owner = repo.GetOwner().GetName()
		}
		ret.Repo = repo.GetName()
		ret.RepoURL = repo.GetHTMLURL()
		ret.Private = repo.GetPrivate()
	} else {
		var pr github.PullRequestEvent
		if err := json.Unmarshal(payload, &pr); err != nil {
			return nil, skerr.Wrapf(err, "decoding event payload")
		}
		if pr.PullRequest == nil {
			return nil, &MissingMetadataError{Reason: "neither head_commit nor pull_request is present"}
		}
		ret.Commit = commitFromPullRequest(pr.GetPullRequest())
		repo := pr.GetRepo()
		ret.Owner = repo.GetOwner().GetLogin()
		ret.Repo = repo.GetName()
		ret.RepoURL = repo.GetHTMLURL()
		ret.Private = repo.GetPrivate()
	}
	if ret.Commit.ID == "" {
		return nil, &MissingMetadataError{Reason: "the commit has no id"}
	}

	if full := getenv(EnvRepository); full != "" {
		if parts := strings.SplitN(full, "/", 2); len(parts) == 2 {
			if ret.Owner == "" {
				ret.Owner = parts[0]
			}
			if ret.Repo == "" {
				ret.Repo = parts[1]
			}
		}
	}
	if ret.Owner == "" || ret.Repo == "" {
		return nil, &MissingMetadataError{Reason: "the repository is unknown"}
	}
	if ret.RepoURL == "" {
		ret.RepoURL = fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(ret.ServerURL, "/"), ret.Owner, ret.Repo)
	}
	return ret, nil
}

func user(a *github.CommitAuthor) types.User {
	return types.User{
		Name:     a.GetName(),
		Email:    a.GetEmail(),
		Username: a.GetLogin(),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func commitFromPush(c *github.PushEventCommit) types.Commit {
	return types.Commit{
		ID:        c.GetID(),
		Message:   c.GetMessage(),
		Timestamp: formatTime(c.GetTimestamp().Time),
		URL:       c.GetURL(),
		Author:    user(c.GetAuthor()),
		Committer: user(c.GetCommitter()),
	}
}

// commitFromPullRequest uses the head of the pull request. pull_request
// payloads carry no commit message or time, so the title and the time the
// head repository was updated stand in for them.
func commitFromPullRequest(pr *github.PullRequest) types.Commit {
	head := pr.GetHead()
	id := head.GetSHA()
	login := head.GetUser().GetLogin()
	return types.Commit{
		ID:        id,
		Message:   pr.GetTitle(),
		Timestamp: formatTime(head.GetRepo().GetUpdatedAt().Time),
		URL:       fmt.Sprintf("%s/commits/%s", pr.GetHTMLURL(), id),
		Author:    types.User{Username: login},
		Committer: types.User{Username: login},
	}
}
