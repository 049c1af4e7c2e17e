package deploy

import (
	"context"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/prodkit/prodkit/internal/core/manifest"
	"github.com/prodkit/prodkit/internal/shell/remote"
)

// DefaultProgressEvery is how many uploads pass between progress
// notifications.
const DefaultProgressEvery = 10

// Synchronizer mirrors a local manifest into the remote base path.
type Synchronizer struct {
	logger        *slog.Logger
	progressEvery int
	progress      func(done, total int)
}

// NewSynchronizer creates a Synchronizer notifying every progressEvery
// files (and on the final file).
func NewSynchronizer(logger *slog.Logger, progressEvery int) *Synchronizer {
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}
	s := &Synchronizer{logger: logger, progressEvery: progressEvery}
	s.progress = func(done, total int) {
		logger.Info("uploading", "done", done, "total", total)
	}
	return s
}

// OnProgress replaces the default progress notification.
func (s *Synchronizer) OnProgress(fn func(done, total int)) {
	s.progress = fn
}

// Sync creates every remote directory up front, then uploads each file.
// Directory creation never interleaves with file transfer.
func (s *Synchronizer) Sync(ctx context.Context, exec Executor, m *manifest.Manifest, basePath string) error {
	if err := s.ensureRemoteDirs(ctx, exec, m, basePath); err != nil {
		return err
	}
	return s.uploadAll(ctx, exec, m, basePath)
}

// ensureRemoteDirs creates the base path and all manifest parent
// directories in one mkdir -p invocation. The call is idempotent.
func (s *Synchronizer) ensureRemoteDirs(ctx context.Context, exec Executor, m *manifest.Manifest, basePath string) error {
	dirs := []string{remote.Quote(basePath)}
	for _, d := range m.RemoteDirs() {
		dirs = append(dirs, remote.Quote(path.Join(basePath, d)))
	}

	cmd := "mkdir -p " + strings.Join(dirs, " ")
	_, err := exec.Run(ctx, cmd, remote.RunOptions{CheckExitCode: true})
	return err
}

func (s *Synchronizer) uploadAll(ctx context.Context, exec Executor, m *manifest.Manifest, basePath string) error {
	total := m.Len()
	for i, e := range m.Entries() {
		f, err := os.Open(e.LocalPath)
		if err != nil {
			return &UploadError{RelPath: e.RelPath, Err: err}
		}
		err = exec.Upload(ctx, f, path.Join(basePath, e.RelPath))
		f.Close()
		if err != nil {
			return &UploadError{RelPath: e.RelPath, Err: err}
		}

		if n := i + 1; n%s.progressEvery == 0 || n == total {
			s.progress(n, total)
		}
	}
	return nil
}
