package main

import "fmt"

// usageError marks a command-line invocation error (wrong argument
// count, unparseable spec) as distinct from a runtime failure, so
// main can map it to exit code 2 instead of 1.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func newUsageError(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func isUsageError(err error) bool {
	_, ok := err.(*usageError)
	return ok
}
