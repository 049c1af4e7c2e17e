// Package target defines the deployment target and its validation rules.
package target

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Built-in fallbacks used when no saved configuration exists.
const (
	DefaultUser    = "root"
	DefaultKeyPath = "~/.ssh/id_rsa"
)

// Target identifies the host one deployment run pushes to.
type Target struct {
	Host    string // IP address or hostname of the VPS
	User    string // SSH username
	KeyPath string // path to the private key, ~ allowed before validation
}

// Default returns the built-in fallback target.
func Default() Target {
	return Target{User: DefaultUser, KeyPath: DefaultKeyPath}
}

// Merge fills empty fields of t from other.
func (t Target) Merge(other Target) Target {
	if t.Host == "" {
		t.Host = other.Host
	}
	if t.User == "" {
		t.User = other.User
	}
	if t.KeyPath == "" {
		t.KeyPath = other.KeyPath
	}
	return t
}

// RemoteBasePath returns the directory the project tree is mirrored into
// on the remote host.
func (t Target) RemoteBasePath() string {
	if t.User == "root" {
		return "/root/app"
	}
	return "/home/" + t.User + "/app"
}

// ValidationError aggregates every violated constraint so the operator
// sees all problems in one pass instead of fixing them one at a time.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid deployment target: " + strings.Join(e.Problems, "; ")
}

// Validate checks that all fields are set and that the key path, after
// home-directory expansion, names an existing regular file. On success
// the key path on the receiver holds the expanded form.
func (t *Target) Validate() error {
	var problems []string

	if strings.TrimSpace(t.Host) == "" {
		problems = append(problems, "VPS IP address is required")
	}
	if strings.TrimSpace(t.User) == "" {
		problems = append(problems, "SSH username is required")
	}
	if strings.TrimSpace(t.KeyPath) == "" {
		problems = append(problems, "SSH key path is required")
	} else if expanded, err := ExpandHome(t.KeyPath); err != nil {
		problems = append(problems, fmt.Sprintf("cannot expand key path %s: %v", t.KeyPath, err))
	} else if info, err := os.Stat(expanded); err != nil {
		problems = append(problems, fmt.Sprintf("SSH key not found: %s", expanded))
	} else if !info.Mode().IsRegular() {
		problems = append(problems, fmt.Sprintf("SSH key path is not a file: %s", expanded))
	} else {
		t.KeyPath = expanded
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ExpandHome replaces a leading ~ with the current user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
