package remote

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDialError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			"auth rejected",
			errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none publickey]"),
			ErrAuthentication,
		},
		{
			"no methods remain",
			errors.New("ssh: no supported methods remain"),
			ErrAuthentication,
		},
		{
			"dial timeout",
			&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("i/o timeout")},
			ErrConnection,
		},
		{
			"transport failure",
			errors.New("ssh: unexpected packet in response to channel open"),
			ErrProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyDialError("203.0.113.7:22", tt.err)
			assert.ErrorIs(t, err, tt.want)

			var cErr *ConnectError
			require.ErrorAs(t, err, &cErr)
			assert.Equal(t, "203.0.113.7:22", cErr.Addr)
		})
	}
}

func TestConnectMissingKey(t *testing.T) {
	_, err := Connect(Options{
		Host:    "203.0.113.7",
		User:    "root",
		KeyPath: "/nonexistent/id_rsa",
		Timeout: time.Second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestCommandErrorMessage(t *testing.T) {
	err := NewCommandError("docker compose up -d", 1, "port already in use", ErrCommandFailed)
	assert.Contains(t, err.Error(), "port already in use")
	assert.Contains(t, err.Error(), "docker compose up -d")
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestCommandErrorTruncatesCommand(t *testing.T) {
	long := "curl -fsSL https://get.docker.com | sh && systemctl start docker"
	err := NewCommandError(long, 0, "", ErrCommandTimeout)

	var cErr *CommandError
	require.ErrorAs(t, err, &cErr)
	assert.Len(t, cErr.Cmd, truncateLen+len("..."))
	assert.Contains(t, cErr.Cmd, "...")
}

func TestTruncateShortCommand(t *testing.T) {
	assert.Equal(t, "docker --version", Truncate("docker --version"))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "'/root/app/a b.txt'", Quote("/root/app/a b.txt"))
	assert.Equal(t, `'it'\''s'`, Quote("it's"))
}

func TestCloseIdempotent(t *testing.T) {
	s := &Session{}
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	var nilSession *Session
	assert.NoError(t, nilSession.Close())
}
