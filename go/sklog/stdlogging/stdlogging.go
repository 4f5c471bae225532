// Package stdlogging implements sklogimpl.Logger and logs to either stderr or stdout.
package stdlogging

import (
	"github.com/benchtrack/infra/go/sklog/sklogimpl"
	logger "github.com/jcgregorio/logger"
)

type stdlog struct {
	logger *logger.Logger
	dst    logger.SyncWriter
}

// New returns a sklogimpl.Logger that writes to a SyncWriter, such as
// os.Stdout or os.Stderr.
func New(dst logger.SyncWriter) sklogimpl.Logger {
	l := logger.NewFromOptions(&logger.Options{
		SyncWriter:   dst,
		DepthDelta:   3,
		IncludeDebug: true,
	})
	return &stdlog{
		logger: l,
		dst:    dst,
	}
}

// Log implements sklogimpl.Logger.
func (s *stdlog) Log(_ int, severity sklogimpl.Severity, format string, args ...interface{}) {
	msg := sklogimpl.Message(format, args...)
	switch severity {
	case sklogimpl.Debug:
		s.logger.Debug(msg)
	case sklogimpl.Info:
		s.logger.Info(msg)
	case sklogimpl.Warning:
		s.logger.Warning(msg)
	case sklogimpl.Error:
		s.logger.Error(msg)
	case sklogimpl.Fatal:
		s.logger.Fatal(msg)
	default:
		s.logger.Error(msg)
	}
}

// Flush implements sklogimpl.Logger.
func (s *stdlog) Flush() {
	_ = s.dst.Sync()
}
