package domain

import (
	"fmt"

	"go.trai.ch/zerr"
)

// Error categories. Every error surfaced by the engine matches exactly one of
// these with errors.Is.
var (
	// ErrStorage is returned when the state file is missing, unreadable, malformed or unwritable.
	ErrStorage = zerr.New("storage error")

	// ErrFileAccess is returned when a declared file cannot be read for fingerprinting.
	ErrFileAccess = zerr.New("file access error")

	// ErrCycleDetected is returned when the dependency graph contains a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrCommandFailed is returned when an executed command exits unsuccessfully.
	ErrCommandFailed = zerr.New("command execution failed")
)

var (
	// ErrStateNotFound is returned when the state file does not exist.
	ErrStateNotFound = zerr.New("state file not found, run 'depex init' first")

	// ErrStateReadFailed is returned when the state file cannot be read.
	ErrStateReadFailed = zerr.New("failed to read state file")

	// ErrStateMalformed is returned when the state file cannot be decoded.
	ErrStateMalformed = zerr.New("state file is malformed")

	// ErrStateMissingField is returned when one of the four record fields is absent.
	ErrStateMissingField = zerr.New("state file is missing a required field")

	// ErrStateWriteFailed is returned when the state file cannot be written.
	ErrStateWriteFailed = zerr.New("failed to write state file")

	// ErrStateExists is returned when init would overwrite an existing state file.
	ErrStateExists = zerr.New("state file already exists, use --force to overwrite")

	// ErrHandleNotOpen is returned when a state handle is closed more often than opened.
	ErrHandleNotOpen = zerr.New("state handle is not open")

	// ErrHandleBusy is returned when a state handle is re-initialized while open.
	ErrHandleBusy = zerr.New("state handle is in use")

	// ErrCommandNotFound is returned when a referenced command has not been declared.
	ErrCommandNotFound = zerr.New("command not found")

	// ErrInvalidCommandName is returned when a command name is empty or contains whitespace or separators.
	ErrInvalidCommandName = zerr.New("invalid command name")

	// ErrEmptyInvocation is returned when a command is declared without an argument vector.
	ErrEmptyInvocation = zerr.New("command invocation is empty")

	// ErrInvalidPath is returned when a declared path is empty.
	ErrInvalidPath = zerr.New("invalid path")

	// ErrNotRegularFile is returned when a declared path names a directory or device.
	ErrNotRegularFile = zerr.New("path is not a regular file")

	// ErrOutputMissing is returned when a command succeeds without producing a declared output.
	ErrOutputMissing = zerr.New("declared output was not produced")

	// ErrProcessStartFailed is returned when a command's executable cannot be started.
	ErrProcessStartFailed = zerr.New("failed to start command")

	// ErrProcessExited is returned when a command exits with a non-zero status.
	ErrProcessExited = zerr.New("command exited with non-zero status")

	// ErrConfigReadFailed is returned when the manifest file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read manifest")

	// ErrConfigParseFailed is returned when the manifest file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse manifest")

	// ErrInvalidLogFormat is returned when an unknown log format is requested.
	ErrInvalidLogFormat = zerr.New("invalid log format, expected 'pretty' or 'json'")

	// ErrWatchFailed is returned when the file watcher cannot be started.
	ErrWatchFailed = zerr.New("failed to watch files")
)

// Classify chains a category with its causes so that errors.Is matches all of them.
// Nil causes are skipped.
func Classify(category error, causes ...error) error {
	format := "%w"
	args := []any{category}
	for _, cause := range causes {
		if cause == nil {
			continue
		}
		format += ": %w"
		args = append(args, cause)
	}
	return fmt.Errorf(format, args...)
}
