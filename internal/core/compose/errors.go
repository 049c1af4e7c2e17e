package compose

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned for an empty compose document.
	ErrEmptyInput = errors.New("compose file is empty")

	// ErrInvalidYAML is returned when the document is not valid YAML or
	// not a valid compose project.
	ErrInvalidYAML = errors.New("invalid compose file")

	// ErrNoServices is returned when the project defines no services.
	ErrNoServices = errors.New("compose file defines no services")

	// ErrNotFound is returned when no compose file exists at the project
	// root.
	ErrNotFound = errors.New("no compose file found")
)

// ParseError wraps a compose parsing failure with its location.
type ParseError struct {
	Path    string // file path, empty when parsing in-memory content
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("parse %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("parse compose file: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(path, message string, err error) *ParseError {
	return &ParseError{Path: path, Message: message, Err: err}
}
