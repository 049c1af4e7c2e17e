package deploy

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodkit/prodkit/internal/shell/remote"
)

func TestEnsureRuntimeAlreadyInstalled(t *testing.T) {
	exec := &fakeExecutor{
		respond: func(cmd string) (remote.Result, error) {
			return remote.Result{ExitCode: 0, Stdout: "Docker version 27.3.1"}, nil
		},
	}
	p := NewProvisioner(discardLogger())

	require.NoError(t, p.EnsureRuntime(context.Background(), exec))

	// A positive probe means zero install commands.
	require.Len(t, exec.commands, 1)
	assert.Equal(t, "docker --version", exec.commands[0])
}

func TestEnsureRuntimeInstallsWhenMissing(t *testing.T) {
	probes := 0
	exec := &fakeExecutor{}
	exec.respond = func(cmd string) (remote.Result, error) {
		if cmd == "docker --version" {
			probes++
			if probes == 1 {
				return remote.Result{ExitCode: 127, Stderr: "docker: command not found"}, nil
			}
			return remote.Result{ExitCode: 0, Stdout: "Docker version 27.3.1"}, nil
		}
		return remote.Result{ExitCode: 0}, nil
	}
	p := NewProvisioner(discardLogger())

	require.NoError(t, p.EnsureRuntime(context.Background(), exec))

	// probe, three install steps, re-probe
	require.Len(t, exec.commands, 5)
	assert.Contains(t, exec.commands[1], "get.docker.com")
	assert.Contains(t, exec.commands[2], "systemctl start docker")
	assert.Contains(t, exec.commands[3], "systemctl enable docker")
}

func TestEnsureRuntimeStepFailuresDoNotAbort(t *testing.T) {
	probes := 0
	exec := &fakeExecutor{}
	exec.respond = func(cmd string) (remote.Result, error) {
		if cmd == "docker --version" {
			probes++
			if probes == 1 {
				return remote.Result{ExitCode: 127}, nil
			}
			return remote.Result{ExitCode: 0, Stdout: "Docker version 27.3.1"}, nil
		}
		if strings.Contains(cmd, "systemctl start") {
			return remote.Result{ExitCode: 1, Stderr: "unit not found"}, nil
		}
		return remote.Result{ExitCode: 0}, nil
	}
	p := NewProvisioner(discardLogger())

	// The start step fails but the sequence continues and the final probe
	// decides.
	require.NoError(t, p.EnsureRuntime(context.Background(), exec))
	require.Len(t, exec.commands, 5)
}

func TestEnsureRuntimeInstallFailure(t *testing.T) {
	exec := &fakeExecutor{
		respond: func(cmd string) (remote.Result, error) {
			if cmd == "docker --version" {
				return remote.Result{ExitCode: 127}, nil
			}
			return remote.Result{ExitCode: 1, Stderr: "curl: not found"}, nil
		},
	}
	p := NewProvisioner(discardLogger())

	err := p.EnsureRuntime(context.Background(), exec)
	require.Error(t, err)

	var pErr *ProvisionError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, pErr.Error(), "install it manually")
}
