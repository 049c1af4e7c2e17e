package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prodkit/prodkit/internal/core/target"
	"github.com/prodkit/prodkit/internal/shell/deploy"
	"github.com/prodkit/prodkit/internal/shell/prompt"
	"github.com/prodkit/prodkit/internal/shell/remote"
	"github.com/prodkit/prodkit/internal/shell/store"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Push the project to a VPS and launch it with docker compose",
	RunE:  runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := SetupLogger(cfg)

	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("cannot resolve project root: %w", err)
	}

	history := openHistory(cfg, logger)
	var recorder deploy.HistoryRecorder
	if history != nil {
		defer history.Close()
		recorder = history
	}

	controller := deploy.NewController(
		deploy.Config{
			ProjectRoot:    root,
			IgnorePatterns: cfg.Sync.IgnorePatterns,
			ProgressEvery:  cfg.Sync.ProgressEvery,
			AppPort:        cfg.App.Port,
		},
		store.NewTargetStore(root),
		recorder,
		prompt.NewCLIPrompter(os.Stdin, os.Stdout),
		dialerFromConfig(cfg, logger),
		logger,
	)
	controller.Synchronizer().OnProgress(func(done, total int) {
		fmt.Printf("uploaded %d/%d files\n", done, total)
	})

	out, err := controller.Run(cmd.Context())
	if err != nil {
		return err
	}
	if out == nil {
		fmt.Println(yellow("deployment cancelled"))
		return nil
	}

	fmt.Printf("\n%s project deployed to %s\n", green("✓"), bold(out.Target.Host))
	if out.Containers != "" {
		fmt.Println(out.Containers)
	}
	fmt.Printf("your application should be reachable at %s\n", bold(out.AppURL))
	return nil
}

// openHistory opens the run history store; a broken history database only
// costs the bookkeeping, never the deployment. The caller owns Close.
func openHistory(cfg *Config, logger *slog.Logger) *store.HistoryStore {
	if !cfg.History.Enabled {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
		logger.Warn("cannot create history directory", "path", cfg.History.Path, "error", err)
		return nil
	}
	h, err := store.NewHistoryStore(cfg.History.Path)
	if err != nil {
		logger.Warn("run history unavailable", "path", cfg.History.Path, "error", err)
		return nil
	}
	return h
}

func dialerFromConfig(cfg *Config, logger *slog.Logger) deploy.Dialer {
	return func(t target.Target) (deploy.SessionConn, error) {
		return remote.Connect(remote.Options{
			Host:           t.Host,
			Port:           cfg.SSH.Port,
			User:           t.User,
			KeyPath:        t.KeyPath,
			Timeout:        cfg.SSH.ConnectTimeout,
			CommandTimeout: cfg.SSH.CommandTimeout,
			Logger:         logger,
		})
	}
}
