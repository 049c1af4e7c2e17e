package remote

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Connection-phase errors.
	ErrAuthentication = errors.New("authentication failed")
	ErrConnection     = errors.New("connection failed")
	ErrProtocol       = errors.New("transport failure")

	// Command-phase errors.
	ErrCommandTimeout = errors.New("command timed out")
	ErrCommandFailed  = errors.New("command failed")
	ErrUploadFailed   = errors.New("upload failed")
)

// ConnectError describes why the connection to the target could not be
// established.
type ConnectError struct {
	Addr    string
	Message string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %s", e.Addr, e.Message)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// NewConnectError creates a new ConnectError.
func NewConnectError(addr, message string, err error) *ConnectError {
	return &ConnectError{Addr: addr, Message: message, Err: err}
}

// CommandError describes a single remote command failure. Cmd is
// truncated for display; Detail holds captured stderr, stdout or a
// generic description, in that order of preference.
type CommandError struct {
	Cmd      string
	ExitCode int
	Detail   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s: %s", e.Err, e.Cmd, e.Detail)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Cmd)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError with a truncated command.
func NewCommandError(cmd string, exitCode int, detail string, err error) *CommandError {
	return &CommandError{Cmd: Truncate(cmd), ExitCode: exitCode, Detail: detail, Err: err}
}
