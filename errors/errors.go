// Package errors provides error constructors that annotate messages with the
// file and line of the call site, plus %w-compatible wrapping. Sentinel and
// typed errors live in the packages that own them; this package only covers
// the common "where did this come from" annotation.
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// caller returns the file:line of the code invoking an exported constructor,
// skipping this package's own frame.
func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// New creates a new error with file and line number information.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", caller(), fmt.Sprintf(format, a...))
}

// Wrapf adds context (including file and line number) to an existing error.
// If the provided error is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", caller(), fmt.Sprintf(format, a...), err)
}
