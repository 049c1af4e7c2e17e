// Package prompt implements the interactive question collaborator used
// to collect deployment parameters.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrCancelled is returned when the operator aborts a prompt (EOF).
var ErrCancelled = errors.New("prompt cancelled")

// Prompter asks one question and returns the answer, or a cancellation.
type Prompter interface {
	Text(question, defaultValue string) (string, error)
}

// CLIPrompter reads answers line by line from in, writing questions to
// out.
type CLIPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewCLIPrompter creates a prompter over the given streams.
func NewCLIPrompter(in io.Reader, out io.Writer) *CLIPrompter {
	return &CLIPrompter{in: bufio.NewReader(in), out: out}
}

// Text prints the question with its default and reads one line. An empty
// answer selects the default; end of input cancels.
func (p *CLIPrompter) Text(question, defaultValue string) (string, error) {
	if defaultValue != "" {
		fmt.Fprintf(p.out, "%s [%s] ", question, defaultValue)
	} else {
		fmt.Fprintf(p.out, "%s ", question)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	answer := strings.TrimSpace(line)
	if err != nil && answer == "" {
		return "", ErrCancelled
	}
	if answer == "" {
		return defaultValue, nil
	}
	return answer, nil
}
