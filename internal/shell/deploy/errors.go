package deploy

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNoOrchestrator is returned when neither compose invocation
	// responds on the remote host.
	ErrNoOrchestrator = errors.New("neither 'docker compose' nor 'docker-compose' is available")
)

// UploadError names the file whose transfer aborted the synchronization.
// Partial uploads are not cleaned up or retried.
type UploadError struct {
	RelPath string
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s: %v", e.RelPath, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// ProvisionError is returned when the runtime install sequence exhausted
// its best-effort steps without producing a working Docker.
type ProvisionError struct {
	Message string
	Err     error
}

func (e *ProvisionError) Error() string {
	return e.Message
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}

// LaunchError carries the compose failure output plus whatever container
// log tail could be fetched for diagnosis. Err preserves the transport
// cause (a timeout stays distinguishable from a failed start).
type LaunchError struct {
	ExitCode int
	Detail   string
	LogTail  string
	Err      error
}

func (e *LaunchError) Error() string {
	msg := fmt.Sprintf("compose failed to start the application (exit code %d)", e.ExitCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.LogTail != "" {
		msg += "\ncontainer logs:\n" + e.LogTail
	}
	return msg
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// PipelineError ties a failure to the stage that produced it. The first
// failing stage ends the run; nothing is rolled back.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
