package deploy

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/prodkit/prodkit/internal/core/target"
	"github.com/prodkit/prodkit/internal/shell/prompt"
	"github.com/prodkit/prodkit/internal/shell/remote"
)

// discardLogger keeps test output quiet.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExecutor records commands and uploads and answers via respond.
// It reproduces the session's check-exit-code contract so stages see the
// same errors they would from a real connection.
type fakeExecutor struct {
	commands []string
	uploads  []string
	respond  func(cmd string) (remote.Result, error)
	uploadFn func(remotePath string) error
}

func (f *fakeExecutor) Run(_ context.Context, cmd string, opts remote.RunOptions) (remote.Result, error) {
	f.commands = append(f.commands, cmd)
	var res remote.Result
	var err error
	if f.respond != nil {
		res, err = f.respond(cmd)
	}
	if err != nil {
		return res, err
	}
	if opts.CheckExitCode && res.ExitCode != 0 {
		detail := res.Stderr
		if detail == "" {
			detail = res.Stdout
		}
		return res, remote.NewCommandError(cmd, res.ExitCode, detail, remote.ErrCommandFailed)
	}
	return res, nil
}

func (f *fakeExecutor) Upload(_ context.Context, content io.Reader, remotePath string) error {
	io.Copy(io.Discard, content)
	f.uploads = append(f.uploads, remotePath)
	if f.uploadFn != nil {
		return f.uploadFn(remotePath)
	}
	return nil
}

// ranMatching returns the executed commands containing substr.
func (f *fakeExecutor) ranMatching(substr string) []string {
	var out []string
	for _, c := range f.commands {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

// fakeConn adds Close tracking on top of fakeExecutor.
type fakeConn struct {
	fakeExecutor
	closed bool
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

// fakePrompter serves canned answers; cancel aborts the first question.
// An empty canned answer selects the offered default, like an operator
// pressing enter.
type fakePrompter struct {
	answers []string
	asked   []string
	cancel  bool
}

func (p *fakePrompter) Text(question, defaultValue string) (string, error) {
	p.asked = append(p.asked, question)
	if p.cancel {
		return "", prompt.ErrCancelled
	}
	if len(p.answers) == 0 {
		return defaultValue, nil
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	if answer == "" {
		return defaultValue, nil
	}
	return answer, nil
}

// fakeStore is an in-memory TargetStore.
type fakeStore struct {
	loaded  target.Target
	loadErr error
	saved   *target.Target
	saveErr error
}

func (s *fakeStore) Load() (target.Target, error) {
	return s.loaded, s.loadErr
}

func (s *fakeStore) Save(t target.Target) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	cp := t
	s.saved = &cp
	return nil
}

// fakeHistory records bookkeeping calls.
type fakeHistory struct {
	started  []string
	outcomes []string // "stage/status"
}

func (h *fakeHistory) RecordStart(runID string, _ target.Target, _ time.Time) error {
	h.started = append(h.started, runID)
	return nil
}

func (h *fakeHistory) RecordOutcome(_ string, stage, status, _ string, _ time.Time) error {
	h.outcomes = append(h.outcomes, stage+"/"+status)
	return nil
}
