package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benchtrack/infra/go/exec"
	"github.com/benchtrack/infra/go/skerr"
	"github.com/benchtrack/infra/go/sklog"
)

const (
	// DefaultServerURL is used when Remote.ServerURL is empty.
	DefaultServerURL = "https://github.com"

	// DefaultUserName and DefaultUserEmail identify commits created by this
	// tool.
	DefaultUserName  = "github-action-benchmark"
	DefaultUserEmail = "github@users.noreply.github.com"
)

// ErrRemoteRejected is wrapped by the error returned from Push when the
// remote refused the update because it has commits the local branch lacks.
var ErrRemoteRejected = errors.New("remote rejected the push")

// rejectionMarkers are printed by "git push" when a ref update is refused.
var rejectionMarkers = []string{"[remote rejected]", "[rejected]"}

// IsRejection returns true if the output of "git push" reports a rejected
// ref update.
func IsRejection(output string) bool {
	for _, marker := range rejectionMarkers {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}

// Remote identifies the hosted repository that a Checkout syncs with.
type Remote struct {
	// ServerURL is the base URL of the hosting server, e.g.
	// "https://github.com".
	ServerURL string

	// Owner and Repo name the repository on the server.
	Owner string
	Repo  string
}

func (r Remote) serverURL() string {
	if r.ServerURL == "" {
		return DefaultServerURL
	}
	return strings.TrimSuffix(r.ServerURL, "/")
}

// authURL returns the https URL of the remote with token embedded.
func (r Remote) authURL(token string) string {
	server := r.serverURL()
	scheme := "https://"
	if strings.HasPrefix(server, "http://") {
		scheme = "http://"
	}
	host := strings.TrimPrefix(strings.TrimPrefix(server, "https://"), "http://")
	return fmt.Sprintf("%sx-access-token:%s@%s/%s/%s.git", scheme, token, host, r.Owner, r.Repo)
}

// Checkout is a git working copy that commits as a bot identity and pulls
// from and pushes to a Remote, authenticating with a token when one is given.
type Checkout struct {
	GitDir

	Remote    Remote
	UserName  string
	UserEmail string
}

// NewCheckout returns a Checkout for the working copy in dir.
func NewCheckout(dir string, remote Remote) *Checkout {
	return &Checkout{
		GitDir:    GitDir(dir),
		Remote:    remote,
		UserName:  DefaultUserName,
		UserEmail: DefaultUserEmail,
	}
}

func (c *Checkout) run(ctx context.Context, secrets []string, args ...string) (string, error) {
	// The extraheader override stops credentials configured by
	// actions/checkout from shadowing the token in the remote URL.
	base := []string{
		"-c", "user.name=" + c.UserName,
		"-c", "user.email=" + c.UserEmail,
		"-c", fmt.Sprintf("http.%s/.extraheader=", c.Remote.serverURL()),
	}
	cmd := &exec.Command{
		Name:    "git",
		Args:    append(base, args...),
		Dir:     c.Dir(),
		Secrets: secrets,
	}
	sklog.Debugf("Running %s", exec.DebugString(cmd))
	return exec.RunCommand(ctx, cmd)
}

// Cmd runs an arbitrary git command, e.g. checkout, add, commit or reset.
func (c *Checkout) Cmd(ctx context.Context, args ...string) (string, error) {
	out, err := c.run(ctx, nil, args...)
	if err != nil {
		return out, skerr.Wrapf(err, "git %s", strings.Join(args, " "))
	}
	return out, nil
}

// Pull runs "git pull" for branch. Without a token the "origin" remote is
// used as configured in the working copy.
func (c *Checkout) Pull(ctx context.Context, token, branch string, options ...string) error {
	remote := "origin"
	if token != "" {
		remote = c.Remote.authURL(token)
	}
	args := append([]string{"pull", remote, branch}, options...)
	if _, err := c.run(ctx, []string{token}, args...); err != nil {
		return skerr.Wrapf(err, "git pull %s", branch)
	}
	return nil
}

// Push runs "git push" for branch. If the remote refuses the update the
// returned error wraps ErrRemoteRejected.
func (c *Checkout) Push(ctx context.Context, token, branch string, options ...string) error {
	remote := "origin"
	if token != "" {
		remote = c.Remote.authURL(token)
	}
	args := append([]string{"push", remote, fmt.Sprintf("%s:%s", branch, branch), "--no-verify"}, options...)
	out, err := c.run(ctx, []string{token}, args...)
	if err == nil {
		return nil
	}
	if IsRejection(out) {
		return skerr.Wrap(fmt.Errorf("%w: git push %s: %s", ErrRemoteRejected, branch, err))
	}
	return skerr.Wrapf(err, "git push %s", branch)
}
