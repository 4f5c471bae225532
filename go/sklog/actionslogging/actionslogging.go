// Package actionslogging implements sklogimpl.Logger for processes running
// inside a GitHub Actions job. Every line goes to a delegate logger, and
// debug, warning and error lines are also emitted as workflow commands so
// they show up as annotations on the run.
package actionslogging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/benchtrack/infra/go/sklog/sklogimpl"
)

var escaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

type actionsLog struct {
	mutex    sync.Mutex
	out      io.Writer
	delegate sklogimpl.Logger
}

// New returns a Logger that writes workflow commands to out, typically
// os.Stdout, and forwards every line to delegate.
func New(out io.Writer, delegate sklogimpl.Logger) sklogimpl.Logger {
	return &actionsLog{
		out:      out,
		delegate: delegate,
	}
}

func command(severity sklogimpl.Severity) string {
	switch severity {
	case sklogimpl.Debug:
		return "debug"
	case sklogimpl.Warning:
		return "warning"
	case sklogimpl.Error, sklogimpl.Fatal:
		return "error"
	}
	return ""
}

// Log implements sklogimpl.Logger.
func (a *actionsLog) Log(depth int, severity sklogimpl.Severity, format string, args ...interface{}) {
	if cmd := command(severity); cmd != "" {
		a.mutex.Lock()
		_, _ = fmt.Fprintf(a.out, "::%s::%s\n", cmd, escaper.Replace(sklogimpl.Message(format, args...)))
		a.mutex.Unlock()
	}
	if a.delegate != nil {
		a.delegate.Log(depth+1, severity, format, args...)
	}
}

// Flush implements sklogimpl.Logger.
func (a *actionsLog) Flush() {
	if a.delegate != nil {
		a.delegate.Flush()
	}
}
