package cli

import (
	"errors"

	"github.com/vk/assetgrid/internal/executor"
)

// Process exit codes.
const (
	CodeOK         = 0
	CodeFatal      = 1
	CodeUsage      = 2
	CodeTaskFailed = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// ExitCode maps the outcome of a run to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return CodeOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var taskErr *executor.TaskError
	if errors.As(err, &taskErr) {
		return CodeTaskFailed
	}
	return CodeFatal
}
