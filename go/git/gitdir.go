package git

/*
	Common utils used by Checkout.
*/

import (
	"context"
	"strings"

	"github.com/benchtrack/infra/go/exec"
	"github.com/benchtrack/infra/go/skerr"
)

// GitDir is a directory in which one may run Git commands.
type GitDir string

// Dir returns the working directory of the GitDir.
func (g GitDir) Dir() string {
	return string(g)
}

// Git runs the given git command in the GitDir.
func (g GitDir) Git(ctx context.Context, cmd ...string) (string, error) {
	return exec.RunCwd(ctx, string(g), append([]string{"git"}, cmd...)...)
}

// RevParse runs "git rev-parse <name>" and returns the result.
func (g GitDir) RevParse(ctx context.Context, args ...string) (string, error) {
	out, err := g.Git(ctx, append([]string{"rev-parse"}, args...)...)
	if err != nil {
		return "", err
	}
	// Ensure that we got a single, 40-character commit hash.
	split := strings.Fields(out)
	if len(split) != 1 {
		return "", skerr.Fmt("unable to parse commit hash from output: %s", out)
	}
	if len(split[0]) != 40 {
		return "", skerr.Fmt("rev-parse returned invalid commit hash: %s", out)
	}
	return split[0], nil
}

// CurrentRef returns the branch that is checked out, or the commit hash if
// HEAD is detached.
func (g GitDir) CurrentRef(ctx context.Context) (string, error) {
	out, err := g.Git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", skerr.Wrap(err)
	}
	ref := strings.TrimSpace(out)
	if ref != "HEAD" {
		return ref, nil
	}
	return g.RevParse(ctx, "HEAD")
}
