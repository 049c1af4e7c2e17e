// Package manifest enumerates the local files slated for upload to the
// deployment target.
package manifest

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultIgnorePatterns matches the directories and files that never
// belong on a production host. Entries with glob metacharacters are
// matched with path.Match against each path segment; the rest require an
// exact segment match.
var DefaultIgnorePatterns = []string{
	"venv",
	".venv",
	"env",
	".env",
	"__pycache__",
	".git",
	".idea",
	"node_modules",
	"*.pyc",
	".DS_Store",
}

// ErrEmptyManifest is returned when filtering leaves nothing to upload.
// An empty project is a configuration mistake, not a valid no-op.
var ErrEmptyManifest = errors.New("no files to upload")

// Entry pairs a local file with its path relative to the project root.
type Entry struct {
	LocalPath string // absolute path on the local machine
	RelPath   string // slash-separated path relative to the project root
}

// Manifest is the immutable set of files selected for one deployment run.
type Manifest struct {
	entries []Entry
}

// Build walks root and collects every regular file whose relative path
// contains no ignored segment. Entries are sorted by relative path so
// uploads happen in a deterministic order.
func Build(root string, patterns []string) (*Manifest, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if segmentIgnored(path.Base(rel), patterns) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if anySegmentIgnored(rel, patterns) {
			return nil
		}
		entries = append(entries, Entry{LocalPath: p, RelPath: rel})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEmptyManifest
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelPath < entries[j].RelPath })
	return &Manifest{entries: entries}, nil
}

// Entries returns the selected files in upload order.
func (m *Manifest) Entries() []Entry {
	return m.entries
}

// Len returns the number of files to upload.
func (m *Manifest) Len() int {
	return len(m.entries)
}

// RemoteDirs returns the distinct parent directories the entries need,
// relative to the base path and sorted. The project root itself (".") is
// omitted; it is created separately.
func (m *Manifest) RemoteDirs() []string {
	seen := make(map[string]struct{})
	for _, e := range m.entries {
		if dir := path.Dir(e.RelPath); dir != "." {
			seen[dir] = struct{}{}
		}
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

func anySegmentIgnored(rel string, patterns []string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if segmentIgnored(seg, patterns) {
			return true
		}
	}
	return false
}

func segmentIgnored(seg string, patterns []string) bool {
	for _, pat := range patterns {
		if strings.ContainsAny(pat, "*?[") {
			if ok, err := path.Match(pat, seg); err == nil && ok {
				return true
			}
			continue
		}
		if seg == pat {
			return true
		}
	}
	return false
}
