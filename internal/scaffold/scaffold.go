// Package scaffold generates the production files a project needs before
// its first deployment.
package scaffold

import (
	"bytes"
	"crypto/rand"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"text/template"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// secretKeyAlphabet matches the character set commonly used for web
// framework secret keys.
const (
	secretKeyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*(-_=+)"
	secretKeyLength   = 50
)

// Params fills the templates.
type Params struct {
	ProjectName string
	Domain      string
	SecretKey   string
}

// File maps an embedded template to its output path and mode.
type File struct {
	Template string
	Output   string
	Mode     fs.FileMode
}

// Files lists everything init generates, in generation order.
var Files = []File{
	{Template: "env.prod.tmpl", Output: ".env.prod", Mode: 0o644},
	{Template: "docker-compose.yaml.tmpl", Output: "docker-compose.yaml", Mode: 0o644},
	{Template: "prod.Dockerfile.tmpl", Output: "prod.Dockerfile", Mode: 0o644},
	{Template: "entrypoint.prod.sh.tmpl", Output: "entrypoint.prod.sh", Mode: 0o755},
	{Template: "requirements.txt.tmpl", Output: "requirements.txt", Mode: 0o644},
}

// GenerateError reports a single file that could not be generated.
type GenerateError struct {
	Output string
	Err    error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("failed to generate %s: %v", e.Output, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}

// Generate renders every production file into projectRoot. Files that
// already exist are left untouched so a re-run never clobbers local edits.
// It returns the paths it actually wrote.
func Generate(projectRoot string, params Params, logger *slog.Logger) ([]string, error) {
	var written []string
	for _, f := range Files {
		outPath := filepath.Join(projectRoot, f.Output)
		if _, err := os.Stat(outPath); err == nil {
			logger.Info("already exists, skipping", "file", f.Output)
			continue
		}

		content, err := render(f.Template, params)
		if err != nil {
			return written, &GenerateError{Output: f.Output, Err: err}
		}
		if err := os.WriteFile(outPath, content, f.Mode); err != nil {
			return written, &GenerateError{Output: f.Output, Err: err}
		}
		logger.Info("generated", "file", f.Output)
		written = append(written, outPath)
	}
	return written, nil
}

func render(name string, params Params) ([]byte, error) {
	raw, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Parse(string(raw))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NewSecretKey returns a random 50-character secret suitable for a
// production settings file.
func NewSecretKey() (string, error) {
	max := big.NewInt(int64(len(secretKeyAlphabet)))
	key := make([]byte, secretKeyLength)
	for i := range key {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate secret key: %w", err)
		}
		key[i] = secretKeyAlphabet[n.Int64()]
	}
	return string(key), nil
}
