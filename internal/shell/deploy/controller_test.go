package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodkit/prodkit/internal/core/target"
	"github.com/prodkit/prodkit/internal/shell/remote"
)

// controllerFixture bundles a controller with its fakes and a project
// tree containing a compose file and a valid key.
type controllerFixture struct {
	ctrl     *Controller
	store    *fakeStore
	history  *fakeHistory
	prompter *fakePrompter
	conn     *fakeConn
	dialed   *bool
	keyPath  string
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "manage.py"), []byte("#"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docker-compose.yaml"),
		[]byte("services:\n  web:\n    image: nginx:latest\n"), 0o644))

	keyPath := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, os.WriteFile(keyPath, []byte("key"), 0o600))

	conn := &fakeConn{}
	conn.respond = func(cmd string) (remote.Result, error) {
		// Docker present, compose v2 present, everything succeeds.
		return remote.Result{ExitCode: 0, Stdout: "ok"}, nil
	}

	dialed := false
	f := &controllerFixture{
		store:    &fakeStore{},
		history:  &fakeHistory{},
		prompter: &fakePrompter{answers: []string{"203.0.113.7", "root", keyPath}},
		conn:     conn,
		dialed:   &dialed,
		keyPath:  keyPath,
	}
	f.ctrl = NewController(
		Config{ProjectRoot: root},
		f.store,
		f.history,
		f.prompter,
		func(_ target.Target) (SessionConn, error) {
			dialed = true
			return conn, nil
		},
		discardLogger(),
	)
	return f
}

func TestRunHappyPath(t *testing.T) {
	f := newControllerFixture(t)

	out, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, StageDone, f.ctrl.Stage())
	assert.Equal(t, "http://203.0.113.7:8000", out.AppURL)
	assert.True(t, *f.dialed)
	assert.True(t, f.conn.closed)

	// Config persisted with the validated target.
	require.NotNil(t, f.store.saved)
	assert.Equal(t, "203.0.113.7", f.store.saved.Host)
	assert.Equal(t, f.keyPath, f.store.saved.KeyPath)

	// Run recorded as succeeded.
	require.Len(t, f.history.outcomes, 1)
	assert.Equal(t, "done/succeeded", f.history.outcomes[0])

	// Files were uploaded and the app launched.
	assert.NotEmpty(t, f.conn.uploads)
	assert.Len(t, f.conn.ranMatching("up -d --build"), 1)
}

func TestRunCancelledPromptReturnsToIdle(t *testing.T) {
	f := newControllerFixture(t)
	f.prompter.cancel = true

	out, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, out)

	assert.Equal(t, StageIdle, f.ctrl.Stage())
	assert.Nil(t, f.store.saved)
	assert.False(t, *f.dialed)
	assert.Empty(t, f.history.started)
}

func TestRunValidationFailureStopsBeforeConnect(t *testing.T) {
	f := newControllerFixture(t)
	f.prompter.answers = []string{"203.0.113.7", "root", "/missing/id_rsa"}

	out, err := f.ctrl.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, out)

	var vErr *target.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Problems, 1)
	assert.Contains(t, vErr.Problems[0], "/missing/id_rsa")

	assert.Equal(t, StageIdle, f.ctrl.Stage())
	assert.Nil(t, f.store.saved)
	assert.False(t, *f.dialed)
}

func TestRunConnectFailureKeepsSavedConfig(t *testing.T) {
	f := newControllerFixture(t)
	dialErr := remote.NewConnectError("203.0.113.7:22", "i/o timeout", remote.ErrConnection)
	f.ctrl.dial = func(_ target.Target) (SessionConn, error) {
		return nil, dialErr
	}

	_, err := f.ctrl.Run(context.Background())
	require.Error(t, err)

	var pErr *PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StageConnect, pErr.Stage)
	assert.ErrorIs(t, err, remote.ErrConnection)

	// Saved before the connection attempt, so a retry keeps credentials.
	assert.NotNil(t, f.store.saved)
	require.Len(t, f.history.outcomes, 1)
	assert.Equal(t, "connect/failed", f.history.outcomes[0])
}

func TestRunProvisionFailureSkipsLaunch(t *testing.T) {
	f := newControllerFixture(t)
	f.conn.respond = func(cmd string) (remote.Result, error) {
		if strings.Contains(cmd, "docker") {
			// Probes and installs all fail.
			return remote.Result{ExitCode: 127, Stderr: "not found"}, nil
		}
		return remote.Result{ExitCode: 0}, nil
	}

	_, err := f.ctrl.Run(context.Background())
	require.Error(t, err)

	var pErr *PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StageProvision, pErr.Stage)

	assert.Empty(t, f.conn.ranMatching("up -d"))
	assert.True(t, f.conn.closed)
}

func TestRunEmptyProjectFailsSyncStage(t *testing.T) {
	f := newControllerFixture(t)
	empty := t.TempDir()
	f.ctrl.cfg.ProjectRoot = empty

	_, err := f.ctrl.Run(context.Background())
	require.Error(t, err)

	var pErr *PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, StageSync, pErr.Stage)
	assert.True(t, f.conn.closed)
}

func TestRunUsesSavedConfigAsDefaults(t *testing.T) {
	f := newControllerFixture(t)
	f.store.loaded = target.Target{Host: "198.51.100.9", User: "deploy", KeyPath: f.keyPath}
	// Operator accepts every default.
	f.prompter.answers = nil

	out, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "198.51.100.9", out.Target.Host)
	assert.Equal(t, "/home/deploy/app", out.Target.RemoteBasePath())
}

func TestRunLoadFailureFallsBackToDefaults(t *testing.T) {
	f := newControllerFixture(t)
	f.store.loadErr = errors.New("corrupt config")
	f.prompter.answers = []string{"203.0.113.7", "", f.keyPath}

	out, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, out)
	// Empty answer picked the built-in default user.
	assert.Equal(t, "root", out.Target.User)
}

func TestRunSaveFailureIsNotFatal(t *testing.T) {
	f := newControllerFixture(t)
	f.store.saveErr = errors.New("disk full")

	out, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, out)
}

func TestRunWithoutHistoryRecorder(t *testing.T) {
	f := newControllerFixture(t)
	f.ctrl.history = nil

	out, err := f.ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, out)
}
