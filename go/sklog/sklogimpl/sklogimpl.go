// Package sklogimpl holds the pluggable backend used by package sklog. It is
// separate from sklog so that backends can import it without a cycle.
package sklogimpl

import (
	"fmt"
	"sync"
)

// Severity of a log line.
type Severity int

const (
	Debug Severity = iota
	Info
	Warning
	Error
	Fatal
)

var severityNames = map[Severity]string{
	Debug:   "DEBUG",
	Info:    "INFO",
	Warning: "WARNING",
	Error:   "ERROR",
	Fatal:   "FATAL",
}

// String returns the upper case name of the severity.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Logger is implemented by every logging backend.
type Logger interface {
	// Log writes a single line. If format is empty the args are joined with
	// fmt.Sprint, otherwise fmt.Sprintf is used. depth is the number of
	// stack frames between the original caller and Log.
	Log(depth int, severity Severity, format string, args ...interface{})

	// Flush writes out any buffered lines.
	Flush()
}

var (
	mutex  sync.RWMutex
	logger Logger
)

// SetLogger replaces the process wide backend.
func SetLogger(l Logger) {
	mutex.Lock()
	defer mutex.Unlock()
	logger = l
}

// GetLogger returns the process wide backend.
func GetLogger() Logger {
	mutex.RLock()
	defer mutex.RUnlock()
	return logger
}

// Log forwards to the current backend.
func Log(depth int, severity Severity, format string, args ...interface{}) {
	if l := GetLogger(); l != nil {
		l.Log(depth+1, severity, format, args...)
	}
}

// Flush forwards to the current backend.
func Flush() {
	if l := GetLogger(); l != nil {
		l.Flush()
	}
}

// Message renders format and args the same way every backend does.
func Message(format string, args ...interface{}) string {
	if format == "" {
		return fmt.Sprint(args...)
	}
	return fmt.Sprintf(format, args...)
}
