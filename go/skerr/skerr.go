// Package skerr provides errors that carry the location at which they were
// created or wrapped, so that logged errors point back at the failing call.
package skerr

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// StackTrace is one frame of the call stack that produced an error.
type StackTrace struct {
	File string
	Line int
}

// String returns the frame formatted as "file.go:123".
func (st StackTrace) String() string {
	return fmt.Sprintf("%s:%d", st.File, st.Line)
}

// ErrorWithContext is an error that has been annotated with a call stack and
// zero or more context messages.
type ErrorWithContext struct {
	wrapped    error
	stackTrace []StackTrace
	context    []string
}

// Error implements the error interface. Context messages are printed
// outermost first, followed by the root cause and the call stack.
func (err *ErrorWithContext) Error() string {
	var out strings.Builder
	for i := len(err.context) - 1; i >= 0; i-- {
		out.WriteString(err.context[i])
		out.WriteString(": ")
	}
	out.WriteString(err.wrapped.Error())
	out.WriteString(". At")
	for _, st := range err.stackTrace {
		out.WriteString(" ")
		out.WriteString(st.String())
	}
	return out.String()
}

// Unwrap allows errors.Is and errors.As to see the wrapped error.
func (err *ErrorWithContext) Unwrap() error {
	return err.wrapped
}

// CallStack returns the frames of the caller, skipping the given number of
// frames above CallStack itself.
func CallStack(height, skip int) []StackTrace {
	pcs := make([]uintptr, height)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	ret := make([]StackTrace, 0, n)
	for {
		frame, more := frames.Next()
		if frame.File != "" {
			ret = append(ret, StackTrace{
				File: filepath.Base(frame.File),
				Line: frame.Line,
			})
		}
		if !more {
			break
		}
	}
	return ret
}

// Fmt is like fmt.Errorf, but also records the call stack.
func Fmt(fmtStr string, args ...interface{}) error {
	return &ErrorWithContext{
		wrapped:    fmt.Errorf(fmtStr, args...),
		stackTrace: CallStack(5, 1),
	}
}

// Wrap adds the call stack to err. If err already has a call stack it is
// returned unchanged. Returns nil for a nil err.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var withContext *ErrorWithContext
	if errors.As(err, &withContext) {
		return err
	}
	return &ErrorWithContext{
		wrapped:    err,
		stackTrace: CallStack(5, 1),
	}
}

// Wrapf adds a context message to err, recording the call stack if err does
// not already have one. Returns nil for a nil err.
func Wrapf(err error, fmtStr string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(fmtStr, args...)
	var withContext *ErrorWithContext
	if errors.As(err, &withContext) && withContext == err {
		return &ErrorWithContext{
			wrapped:    withContext.wrapped,
			stackTrace: withContext.stackTrace,
			context:    append(append([]string{}, withContext.context...), msg),
		}
	}
	return &ErrorWithContext{
		wrapped:    err,
		stackTrace: CallStack(5, 1),
		context:    []string{msg},
	}
}

// Unwrap returns the innermost error, removing any context added by this
// package or by fmt.Errorf("%w").
func Unwrap(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
