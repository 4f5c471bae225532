/*
	A wrapper around the os/exec package that supports timeouts and testing.

	Example usage:

	Simple command with argument:
	err := Run(ctx, &Command{
		Name: "touch",
		Args: []string{file},
	})

	Capture output from a command run in a directory:
	out, err := RunCwd(ctx, checkoutDir, "git", "status", "--porcelain")

	Inject a Run function for testing:
	rec := &exec.CommandRecorder{}
	ctx := exec.NewContext(context.Background(), rec.Run)
	TestCodeCallingRun(ctx)
	require.Equal(t, []string{"git status --porcelain"}, rec.Lines())
*/
package exec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/benchtrack/infra/go/skerr"
	"github.com/benchtrack/infra/go/sklog"
)

// WriteLog implements the io.Writer interface and writes to the given log function.
type WriteLog struct {
	LogFunc func(format string, args ...interface{})
}

func (wl WriteLog) Write(p []byte) (n int, err error) {
	wl.LogFunc("%s", string(p))
	return len(p), nil
}

var (
	WriteInfoLog  = WriteLog{LogFunc: sklog.Infof}
	WriteErrorLog = WriteLog{LogFunc: sklog.Errorf}
)

type Command struct {
	// Name of the command, as passed to osexec.Command. Can be the path to a binary or the
	// name of a command that osexec.Lookpath can find.
	Name string
	// Arguments of the command, not including Name.
	Args []string
	// The environment of the process. If nil, the current process's environment is used.
	Env []string
	// If Env is non-nil, adds the current process's PATH to Env.
	InheritPath bool
	// The working directory of the command. If empty, runs in the current process's current
	// directory.
	Dir string
	// See docs for osexec.Cmd.Stdin.
	Stdin io.Reader
	// If true, duplicates stdout of the command to WriteInfoLog.
	LogStdout bool
	// Sends the stdout of the command to this Writer, e.g. os.File or bytes.Buffer.
	Stdout io.Writer
	// If true, duplicates stderr of the command to WriteErrorLog.
	LogStderr bool
	// Sends the stderr of the command to this Writer, e.g. os.File or bytes.Buffer.
	Stderr io.Writer
	// Sends the combined stdout and stderr of the command to this Writer, in addition to
	// Stdout and Stderr.
	CombinedOutput io.Writer
	// Time limit to wait for the command to finish. No limit if not specified.
	Timeout time.Duration
	// Args that must not show up in logs, e.g. remote URLs carrying tokens.
	// Each occurrence is replaced with "***" by DebugString.
	Secrets []string
}

// DebugString returns the Env, Name, and Args of command joined with spaces,
// with any Secrets masked.
func DebugString(command *Command) string {
	parts := make([]string, 0, len(command.Env)+1+len(command.Args))
	parts = append(parts, command.Env...)
	parts = append(parts, command.Name)
	parts = append(parts, command.Args...)
	s := strings.Join(parts, " ")
	for _, secret := range command.Secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "***")
		}
	}
	return s
}

// Given io.Writers or nils, return a single writer that writes to all, or nil if no non-nil
// writers. Does not handle non-nil interface containing a nil value.
func squashWriters(writers ...io.Writer) io.Writer {
	nonNil := []io.Writer{}
	for _, writer := range writers {
		if writer != nil {
			nonNil = append(nonNil, writer)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return io.MultiWriter(nonNil...)
	}
}

func createCmd(ctx context.Context, command *Command) *osexec.Cmd {
	cmd := osexec.CommandContext(ctx, command.Name, command.Args...)
	if len(command.Env) != 0 {
		cmd.Env = command.Env
		if command.InheritPath {
			cmd.Env = append(cmd.Env, "PATH="+os.Getenv("PATH"))
		}
	}
	cmd.Dir = command.Dir
	cmd.Stdin = command.Stdin
	var stdoutLog io.Writer
	if command.LogStdout {
		stdoutLog = WriteInfoLog
	}
	cmd.Stdout = squashWriters(stdoutLog, command.Stdout, command.CombinedOutput)
	var stderrLog io.Writer
	if command.LogStderr {
		stderrLog = WriteErrorLog
	}
	cmd.Stderr = squashWriters(stderrLog, command.Stderr, command.CombinedOutput)
	return cmd
}

// DefaultRun runs the command in a subprocess and waits for it to finish.
func DefaultRun(ctx context.Context, command *Command) error {
	if command.Timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}
	cmd := createCmd(ctx, command)
	sklog.Debugf("Executing %s", DebugString(command))
	if err := cmd.Start(); err != nil {
		return skerr.Wrapf(err, "unable to start command %s", DebugString(command))
	}
	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return skerr.Fmt("command killed since it took longer than %f secs: %s", command.Timeout.Seconds(), DebugString(command))
		}
		return skerr.Wrapf(err, "command exited with error: %s", DebugString(command))
	}
	return nil
}

type contextKeyType string

const contextKey contextKeyType = "execContext"

type execContext struct {
	runFn func(context.Context, *Command) error
}

// NewContext returns a context.Context in which Run and friends use runFn
// instead of spawning subprocesses.
func NewContext(ctx context.Context, runFn func(context.Context, *Command) error) context.Context {
	return context.WithValue(ctx, contextKey, &execContext{runFn: runFn})
}

func getCtx(ctx context.Context) *execContext {
	if v := ctx.Value(contextKey); v != nil {
		return v.(*execContext)
	}
	return &execContext{runFn: DefaultRun}
}

// Run runs command and waits for it to finish. If any failure, returns non-nil. If a timeout was
// specified, returns an error once the command has exceeded that timeout.
func Run(ctx context.Context, command *Command) error {
	return getCtx(ctx).runFn(ctx, command)
}

// RunCommand executes the given command and returns the combined stdout and
// stderr. On failure the returned error includes the output.
func RunCommand(ctx context.Context, command *Command) (string, error) {
	output := bytes.Buffer{}
	command.CombinedOutput = squashWriters(command.CombinedOutput, &output)
	err := Run(ctx, command)
	result := output.String()
	if err != nil {
		return result, fmt.Errorf("%w; Output:\n%s", err, maskSecrets(result, command.Secrets))
	}
	return result, nil
}

// RunCwd executes the given command in the given directory. Returns the
// combined stdout and stderr. May also return an error if the command exited
// with a non-zero status or there is any other error.
func RunCwd(ctx context.Context, cwd string, args ...string) (string, error) {
	command := &Command{
		Name: args[0],
		Args: args[1:],
		Dir:  cwd,
	}
	return RunCommand(ctx, command)
}

func maskSecrets(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, "***")
		}
	}
	return s
}
