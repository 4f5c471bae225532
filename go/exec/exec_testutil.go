package exec

// This file contains helpers for working with exec in tests.

import (
	"context"
	"io"
	"strings"
	"sync"
)

type response struct {
	prefix string
	output string
	err    error
}

// CommandRecorder is a Run function for NewContext that records every command
// instead of running it. Commands whose DebugString starts with a prefix
// registered through Respond get the canned output and error; the rest
// succeed with no output.
//
//	rec := &exec.CommandRecorder{}
//	rec.Respond("git push", "! [rejected]", errors.New("exit status 1"))
//	ctx := exec.NewContext(context.Background(), rec.Run)
type CommandRecorder struct {
	mutex     sync.Mutex
	commands  []*Command
	responses []response
}

// Respond registers output and err for commands starting with prefix. The
// first matching registration wins.
func (r *CommandRecorder) Respond(prefix, output string, err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.responses = append(r.responses, response{prefix: prefix, output: output, err: err})
}

// Commands returns a copy of the commands recorded so far.
func (r *CommandRecorder) Commands() []*Command {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]*Command(nil), r.commands...)
}

// Lines returns the DebugString of every recorded command, secrets masked.
func (r *CommandRecorder) Lines() []string {
	cmds := r.Commands()
	ret := make([]string, 0, len(cmds))
	for _, c := range cmds {
		ret = append(ret, DebugString(c))
	}
	return ret
}

// Run records command and replays the matching response into its Stdout and
// CombinedOutput writers.
func (r *CommandRecorder) Run(_ context.Context, command *Command) error {
	line := DebugString(command)
	r.mutex.Lock()
	r.commands = append(r.commands, command)
	var resp *response
	for i := range r.responses {
		if strings.HasPrefix(line, r.responses[i].prefix) {
			resp = &r.responses[i]
			break
		}
	}
	r.mutex.Unlock()
	if resp == nil {
		return nil
	}
	for _, w := range []io.Writer{command.Stdout, command.CombinedOutput} {
		if w != nil && resp.output != "" {
			if _, err := w.Write([]byte(resp.output)); err != nil {
				return err
			}
		}
	}
	return resp.err
}
