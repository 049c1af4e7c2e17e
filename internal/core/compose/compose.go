// Package compose inspects the project's orchestration manifest before a
// deployment run. The pipeline only needs the service inventory; the
// remote compose binary does the real work.
package compose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// fileNames are the compose file names probed at the project root, in
// order of preference.
var fileNames = []string{
	"docker-compose.yaml",
	"docker-compose.yml",
	"compose.yaml",
	"compose.yml",
}

// Spec is the subset of a parsed compose project the deployment pipeline
// cares about.
type Spec struct {
	Services []Service
}

// Service describes one declared service.
type Service struct {
	Name  string
	Image string
	Build bool // true when the service builds its image on the host
}

// ServiceNames returns the declared service names in sorted order.
func (s *Spec) ServiceNames() []string {
	names := make([]string, 0, len(s.Services))
	for _, svc := range s.Services {
		names = append(names, svc.Name)
	}
	return names
}

// Locate returns the path of the compose file at the project root, or
// ErrNotFound.
func Locate(root string) (string, error) {
	for _, name := range fileNames {
		p := filepath.Join(root, name)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// ParseFile reads and parses the compose file at path.
func ParseFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewParseError(path, err.Error(), err)
	}
	spec, err := Parse(string(data))
	if err != nil {
		var pErr *ParseError
		if errors.As(err, &pErr) {
			pErr.Path = path
		}
		return nil, err
	}
	return spec, nil
}

// Parse parses compose YAML into a Spec. Interpolation is skipped since
// variable values live on the deployment host, not the operator machine.
func Parse(yamlContent string) (*Spec, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	// Pre-parse into a map so syntax errors surface before the loader.
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if dict == nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(yamlContent),
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("prodkit", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = true
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, NewParseError("", err.Error(), ErrInvalidYAML)
	}

	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	spec := &Spec{Services: make([]Service, 0, len(project.Services))}
	for name, svc := range project.Services {
		spec.Services = append(spec.Services, Service{
			Name:  name,
			Image: svc.Image,
			Build: svc.Build != nil,
		})
	}
	sort.Slice(spec.Services, func(i, j int) bool {
		return spec.Services[i].Name < spec.Services[j].Name
	})

	return spec, nil
}
