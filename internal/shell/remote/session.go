// Package remote owns one authenticated SSH connection to the deployment
// target and exposes command execution and bulk file transfer over it.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	// DefaultConnectTimeout bounds the TCP dial and SSH handshake.
	DefaultConnectTimeout = 30 * time.Second
	// DefaultCommandTimeout bounds a single remote command unless the
	// caller overrides it.
	DefaultCommandTimeout = 120 * time.Second
	// DefaultPort is the standard SSH port.
	DefaultPort = 22

	// truncateLen is how much of a command is kept in error messages.
	truncateLen = 50
)

// Options configure a connection attempt.
type Options struct {
	Host    string
	Port    int           // defaults to DefaultPort
	User    string
	KeyPath string        // private key on the local machine
	Timeout time.Duration // defaults to DefaultConnectTimeout

	// CommandTimeout is the per-command deadline applied when RunOptions
	// carries none. Defaults to DefaultCommandTimeout.
	CommandTimeout time.Duration

	// HostKeyCallback overrides the trust-on-first-use default. Accepting
	// unknown host keys trades strict verification for one-command
	// deployments; callers wanting strict checking supply their own.
	HostKeyCallback ssh.HostKeyCallback

	Logger *slog.Logger
}

// Result captures one remote command execution. A non-zero exit code is
// not an error by itself; callers decide.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// RunOptions configure a single command execution.
type RunOptions struct {
	Timeout       time.Duration // defaults to DefaultCommandTimeout
	CheckExitCode bool          // non-zero exit becomes ErrCommandFailed
}

// Session wraps one live authenticated connection. It is owned by a
// single deployment run and is not safe for concurrent use.
type Session struct {
	client     *ssh.Client
	addr       string
	cmdTimeout time.Duration
	logger     *slog.Logger
}

// Connect establishes the transport and authenticates with the private
// key.
func Connect(opts Options) (*Session, error) {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	cmdTimeout := opts.CommandTimeout
	if cmdTimeout <= 0 {
		cmdTimeout = DefaultCommandTimeout
	}
	hostKeyCallback := opts.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(port))

	key, err := os.ReadFile(opts.KeyPath)
	if err != nil {
		return nil, NewConnectError(addr, fmt.Sprintf("read private key: %v", err), ErrAuthentication)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, NewConnectError(addr, fmt.Sprintf("parse private key: %v", err), ErrAuthentication)
	}

	cfg := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, classifyDialError(addr, err)
	}

	logger.Debug("connected", "addr", addr, "user", opts.User)
	return &Session{client: client, addr: addr, cmdTimeout: cmdTimeout, logger: logger}, nil
}

// classifyDialError sorts a dial failure into the connection-phase error
// taxonomy.
func classifyDialError(addr string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"),
		strings.Contains(msg, "no supported methods remain"),
		strings.Contains(msg, "handshake failed: ssh: "):
		return NewConnectError(addr, msg, ErrAuthentication)
	case isNetworkError(err):
		return NewConnectError(addr, msg, ErrConnection)
	default:
		return NewConnectError(addr, msg, ErrProtocol)
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Run executes one command line on the remote shell and waits for its
// completion up to the configured timeout. A timeout abandons local
// waiting; the remote command is not guaranteed to stop.
func (s *Session) Run(ctx context.Context, cmd string, opts RunOptions) (Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.cmdTimeout
	}

	sess, err := s.client.NewSession()
	if err != nil {
		return Result{}, NewCommandError(cmd, 0, err.Error(), ErrProtocol)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(cmd)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(timeout):
		s.logger.Warn("remote command timed out", "cmd", Truncate(cmd), "timeout", timeout)
		return Result{}, NewCommandError(cmd, 0, fmt.Sprintf("no completion after %s", timeout), ErrCommandTimeout)
	case runErr = <-done:
	}

	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if runErr != nil {
		var exitErr *ssh.ExitError
		if !errors.As(runErr, &exitErr) {
			return res, NewCommandError(cmd, 0, runErr.Error(), ErrProtocol)
		}
		res.ExitCode = exitErr.ExitStatus()
	}

	if opts.CheckExitCode && res.ExitCode != 0 {
		detail := res.Stderr
		if detail == "" {
			detail = res.Stdout
		}
		if detail == "" {
			detail = fmt.Sprintf("exit code %d", res.ExitCode)
		}
		return res, NewCommandError(cmd, res.ExitCode, detail, ErrCommandFailed)
	}
	return res, nil
}

// Upload streams content to remotePath by piping it through cat on a
// fresh session. Parent directories must already exist.
func (s *Session) Upload(ctx context.Context, content io.Reader, remotePath string) error {
	sess, err := s.client.NewSession()
	if err != nil {
		return NewCommandError(remotePath, 0, err.Error(), ErrUploadFailed)
	}
	defer sess.Close()

	sess.Stdin = content

	var stderr bytes.Buffer
	sess.Stderr = &stderr

	cmd := "cat > " + Quote(remotePath)

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cmdTimeout):
		return NewCommandError(cmd, 0, fmt.Sprintf("no completion after %s", s.cmdTimeout), ErrCommandTimeout)
	case err := <-done:
		if err != nil {
			detail := strings.TrimSpace(stderr.String())
			if detail == "" {
				detail = err.Error()
			}
			return NewCommandError(cmd, 0, detail, ErrUploadFailed)
		}
	}
	return nil
}

// Close releases the transport. It is idempotent and safe to call on a
// session whose connection never fully succeeded.
func (s *Session) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Addr returns the remote address this session is connected to.
func (s *Session) Addr() string {
	return s.addr
}

// Truncate shortens a command for log and error display.
func Truncate(cmd string) string {
	if len(cmd) <= truncateLen {
		return cmd
	}
	return cmd[:truncateLen] + "..."
}

// Quote wraps s in single quotes for safe use in a remote shell command.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
