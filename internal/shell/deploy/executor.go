package deploy

import (
	"context"
	"io"

	"github.com/prodkit/prodkit/internal/shell/remote"
)

// Executor is the slice of a remote session the pipeline stages need.
// *remote.Session satisfies it; tests substitute fakes.
type Executor interface {
	Run(ctx context.Context, cmd string, opts remote.RunOptions) (remote.Result, error)
	Upload(ctx context.Context, content io.Reader, remotePath string) error
}

// SessionConn is what the controller requires from a live connection.
type SessionConn interface {
	Executor
	Close() error
}
