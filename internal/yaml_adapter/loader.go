// Package yaml_adapter loads job definitions written in YAML:
//
//	jobs:
//	  build:
//	    script: go build ./...
//	  test:
//	    needs: build
//	    script:
//	      - go vet ./...
//	      - go test ./...
//
// Jobs keep the order of the `jobs` mapping.
package yaml_adapter

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/specialistvlad/jobgrid/internal/config"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// Extensions are the file suffixes this loader reads.
var Extensions = []string{".yaml", ".yml"}

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

type fileRoot struct {
	Jobs yaml.Node `yaml:"jobs"`
}

type jobDoc struct {
	Script  stringList        `yaml:"script"`
	Needs   stringList        `yaml:"needs"`
	Env     map[string]string `yaml:"env"`
	Shell   string            `yaml:"shell"`
	WorkDir string            `yaml:"working-dir"`
}

// stringList accepts either a scalar or a sequence of scalars.
type stringList []string

func (s *stringList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			*s = nil
			return nil
		}
		*s = stringList{n.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*s = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", n.Line)
	}
}

// Load parses every YAML file under paths, in lexical order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, Extensions...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	model := &config.Model{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		jobs, err := l.loadFile(file)
		if err != nil {
			return nil, err
		}
		model.Jobs = append(model.Jobs, jobs...)
	}

	logger.Debug("YAML loading complete.", "files", len(files), "jobs", len(model.Jobs))
	return model, nil
}

func (l *Loader) loadFile(file string) ([]*config.Job, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML file %s: %w", file, err)
	}

	var root fileRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", file, err)
	}

	switch root.Jobs.Kind {
	case 0:
		// No `jobs` key; the file is not a job file.
		return nil, nil
	case yaml.MappingNode:
	default:
		return nil, fmt.Errorf("%s: line %d: `jobs` must be a mapping of job name to definition", file, root.Jobs.Line)
	}

	content := root.Jobs.Content
	jobs := make([]*config.Job, 0, len(content)/2)
	for i := 0; i+1 < len(content); i += 2 {
		key, value := content[i], content[i+1]

		var doc jobDoc
		if err := value.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: job '%s': %w", file, key.Value, err)
		}

		jobs = append(jobs, &config.Job{
			Name:    key.Value,
			Script:  strings.Join(doc.Script, "\n"),
			Needs:   doc.Needs,
			Env:     doc.Env,
			Shell:   doc.Shell,
			WorkDir: doc.WorkDir,
			Source:  fmt.Sprintf("%s:%d", file, key.Line),
		})
	}
	return jobs, nil
}
