// Package notify posts benchmark reports as GitHub commit comments.
//
// See https://docs.github.com/en/rest/commits/comments#create-a-commit-comment
// for the API documentation.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/benchtrack/infra/benchtrack/go/report"
	"github.com/benchtrack/infra/go/skerr"
	"github.com/benchtrack/infra/go/sklog"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v29/github"
	"golang.org/x/oauth2"
)

const (
	// Exponential backoff defaults for transient API failures.
	initialInterval = 500 * time.Millisecond
	maxInterval     = 10 * time.Second
	maxRetries      = 4
)

// GitHub leaves comments on the commits of one repository.
type GitHub struct {
	RepoOwner string
	RepoName  string

	client  *github.Client
	backOff func() backoff.BackOff
}

// NewGitHub returns a GitHub authenticated with token. apiURL selects a
// GitHub Enterprise server, the public API is used if it is empty.
func NewGitHub(ctx context.Context, repoOwner, repoName, token, apiURL string) (*GitHub, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return newGitHub(oauth2.NewClient(ctx, ts), repoOwner, repoName, apiURL)
}

func newGitHub(httpClient *http.Client, repoOwner, repoName, apiURL string) (*GitHub, error) {
	client := github.NewClient(httpClient)
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		u, err := url.Parse(apiURL)
		if err != nil {
			return nil, skerr.Wrapf(err, "parsing API URL %q", apiURL)
		}
		client.BaseURL = u
	}
	return &GitHub{
		RepoOwner: repoOwner,
		RepoName:  repoName,
		client:    client,
		backOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initialInterval
			b.MaxInterval = maxInterval
			return backoff.WithMaxRetries(b, maxRetries)
		},
	}, nil
}

// Comment implements report.Notifier. Server errors and network failures
// are retried, client errors are not.
func (g *GitHub) Comment(ctx context.Context, commitID, body string) (string, error) {
	comment := &github.RepositoryComment{
		Body: &body,
	}
	var created *github.RepositoryComment
	op := func() error {
		c, resp, err := g.client.Repositories.CreateComment(ctx, g.RepoOwner, g.RepoName, commitID, comment)
		if err != nil {
			if resp != nil && resp.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			return err
		}
		if resp.StatusCode != http.StatusCreated {
			return backoff.Permanent(fmt.Errorf("Unexpected status code %d from repositories.createcomment.", resp.StatusCode))
		}
		created = c
		return nil
	}
	notify := func(err error, d time.Duration) {
		sklog.Warningf("Failed to comment on %s, retrying in %s: %s", commitID, d, err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(g.backOff(), ctx), notify); err != nil {
		return "", skerr.Wrapf(err, "Failed doing repositories.createcomment on %s/%s@%s", g.RepoOwner, g.RepoName, commitID)
	}
	return created.GetHTMLURL(), nil
}

var _ report.Notifier = (*GitHub)(nil)
