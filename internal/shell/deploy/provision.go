package deploy

import (
	"context"
	"log/slog"
	"time"

	"github.com/prodkit/prodkit/internal/shell/remote"
)

const (
	dockerProbeCmd   = "docker --version"
	dockerInstallCmd = "curl -fsSL https://get.docker.com | sh"
	dockerStartCmd   = "systemctl start docker || service docker start"
	dockerEnableCmd  = "systemctl enable docker || true"

	// installStepTimeout allows for slow package downloads on fresh hosts.
	installStepTimeout = 300 * time.Second
)

// Provisioner ensures the Docker runtime is present on the target host.
type Provisioner struct {
	logger *slog.Logger
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(logger *slog.Logger) *Provisioner {
	return &Provisioner{logger: logger}
}

// EnsureRuntime probes for Docker and installs it when missing. The
// install sequence is best effort: individual step failures are logged
// as warnings and the final probe decides the outcome.
func (p *Provisioner) EnsureRuntime(ctx context.Context, exec Executor) error {
	res, err := exec.Run(ctx, dockerProbeCmd, remote.RunOptions{})
	if err == nil && res.ExitCode == 0 {
		p.logger.Info("docker already installed", "version", res.Stdout)
		return nil
	}

	p.logger.Info("docker not found, installing")
	steps := []string{dockerInstallCmd, dockerStartCmd, dockerEnableCmd}
	for _, cmd := range steps {
		p.logger.Info("running install step", "cmd", remote.Truncate(cmd))
		if _, err := exec.Run(ctx, cmd, remote.RunOptions{Timeout: installStepTimeout, CheckExitCode: true}); err != nil {
			p.logger.Warn("install step failed", "cmd", remote.Truncate(cmd), "error", err)
		}
	}

	res, err = exec.Run(ctx, dockerProbeCmd, remote.RunOptions{})
	if err != nil || res.ExitCode != 0 {
		return &ProvisionError{Message: "failed to install docker; please install it manually", Err: err}
	}

	p.logger.Info("docker installed", "version", res.Stdout)
	return nil
}
