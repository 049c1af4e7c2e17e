package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/prodkit/prodkit/internal/core/target"
)

// TargetFileName is the per-project file holding the last-used target.
const TargetFileName = "deployment_target.json"

// targetRecord is the on-disk shape of a saved target. The key names are
// part of the file format and must not change.
type targetRecord struct {
	Host    string `json:"vps_ip"`
	User    string `json:"ssh_user"`
	KeyPath string `json:"path_to_ssh_key"`
}

// TargetStore reads and writes the deployment target file in a project
// directory.
type TargetStore struct {
	path string
}

// NewTargetStore creates a store rooted at the given project directory.
func NewTargetStore(projectRoot string) *TargetStore {
	return &TargetStore{path: filepath.Join(projectRoot, TargetFileName)}
}

// Path returns the location of the target file.
func (s *TargetStore) Path() string {
	return s.path
}

// Load reads the saved target. A missing file is not an error: it returns
// a zero target so the caller falls back to defaults. A malformed file is
// an error so the caller can warn before overwriting it.
func (s *TargetStore) Load() (target.Target, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return target.Target{}, nil
	}
	if err != nil {
		return target.Target{}, NewStoreError("Load", "target", "", err.Error(), err)
	}

	var rec targetRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return target.Target{}, NewStoreError("Load", "target", "", err.Error(), ErrInvalidData)
	}
	return target.Target{Host: rec.Host, User: rec.User, KeyPath: rec.KeyPath}, nil
}

// Save writes the target file, replacing any previous contents.
func (s *TargetStore) Save(t target.Target) error {
	rec := targetRecord{Host: t.Host, User: t.User, KeyPath: t.KeyPath}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return NewStoreError("Save", "target", "", err.Error(), ErrInvalidData)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return NewStoreError("Save", "target", "", err.Error(), err)
	}
	return nil
}
