package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prodkit/prodkit/internal/shell/remote"
)

const (
	composeV2Probe = "docker compose version"
	composeV1Probe = "docker-compose --version"

	// launchTimeout covers image builds, which dominate first deploys.
	launchTimeout  = 600 * time.Second
	logTailTimeout = 30 * time.Second
	logTailLines   = 50
)

// Launcher starts the application with the compose command available on
// the remote host.
type Launcher struct {
	logger *slog.Logger
}

// NewLauncher creates a Launcher.
func NewLauncher(logger *slog.Logger) *Launcher {
	return &Launcher{logger: logger}
}

// SelectCommand probes for the compose v2 subcommand first and falls
// back to the legacy standalone binary.
func (l *Launcher) SelectCommand(ctx context.Context, exec Executor) (string, error) {
	if res, err := exec.Run(ctx, composeV2Probe, remote.RunOptions{}); err == nil && res.ExitCode == 0 {
		return "docker compose", nil
	}
	if res, err := exec.Run(ctx, composeV1Probe, remote.RunOptions{}); err == nil && res.ExitCode == 0 {
		return "docker-compose", nil
	}
	return "", ErrNoOrchestrator
}

// Launch builds images and (re)creates the application containers
// detached, removing orphans. On success it returns the container list
// for display; fetching that list is best effort and never masks the
// launch result.
func (l *Launcher) Launch(ctx context.Context, exec Executor, basePath, composeCmd string) (string, error) {
	up := fmt.Sprintf("cd %s && %s up -d --build --force-recreate --remove-orphans",
		remote.Quote(basePath), composeCmd)

	l.logger.Info("building and starting containers", "cmd", composeCmd)
	res, err := exec.Run(ctx, up, remote.RunOptions{Timeout: launchTimeout})
	if err != nil {
		return "", &LaunchError{Detail: err.Error(), Err: err}
	}
	if res.ExitCode != 0 {
		detail := res.Stderr
		if detail == "" {
			detail = res.Stdout
		}
		tail := l.fetchLogTail(ctx, exec, basePath, composeCmd)
		return "", &LaunchError{ExitCode: res.ExitCode, Detail: detail, LogTail: tail}
	}

	ps := fmt.Sprintf("cd %s && %s ps", remote.Quote(basePath), composeCmd)
	psRes, err := exec.Run(ctx, ps, remote.RunOptions{})
	if err != nil {
		l.logger.Warn("could not list containers", "error", err)
		return "", nil
	}
	return psRes.Stdout, nil
}

// fetchLogTail pulls the last lines of aggregated container logs for
// diagnosis. Its own failure is swallowed.
func (l *Launcher) fetchLogTail(ctx context.Context, exec Executor, basePath, composeCmd string) string {
	cmd := fmt.Sprintf("cd %s && %s logs --tail=%d", remote.Quote(basePath), composeCmd, logTailLines)
	res, err := exec.Run(ctx, cmd, remote.RunOptions{Timeout: logTailTimeout})
	if err != nil {
		l.logger.Warn("could not fetch container logs", "error", err)
		return ""
	}
	return res.Stdout
}
