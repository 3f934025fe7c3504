package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/jobgrid/internal/config"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/specialistvlad/jobgrid/internal/fsutil"
)

// Extension is the file suffix this loader reads.
const Extension = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	evalCtx *hcl.EvalContext
}

// NewLoader creates a new HCL configuration loader. Expressions can reference
// the process environment through the `env` object.
func NewLoader() *Loader {
	return &Loader{evalCtx: osEvalContext()}
}

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Jobs   []*jobBlock `hcl:"job,block"`
	Remain hcl.Body    `hcl:",remain"`
}

// jobBlock is the HCL shape of a job:
//
//	job "test" {
//	  needs  = ["build"]
//	  script = ["go test ./..."]
//	}
type jobBlock struct {
	Name    string         `hcl:"name,label"`
	Script  hcl.Expression `hcl:"script"`
	Needs   []string       `hcl:"needs,optional"`
	Env     hcl.Expression `hcl:"env,optional"`
	Shell   string         `hcl:"shell,optional"`
	WorkDir string         `hcl:"working_dir,optional"`
}

// Load parses every .hcl file under paths, in lexical order, and returns
// their jobs in declaration order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, l.evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, b := range root.Jobs {
			j, err := l.translateJob(ctx, file, b)
			if err != nil {
				return nil, err
			}
			model.Jobs = append(model.Jobs, j)
		}
	}

	logger.Debug("HCL loading complete.", "files", len(files), "jobs", len(model.Jobs))
	return model, nil
}

func (l *Loader) translateJob(ctx context.Context, file string, b *jobBlock) (*config.Job, error) {
	script, err := evalScript(b.Script, l.evalCtx)
	if err != nil {
		return nil, fmt.Errorf("%s: job '%s': %w", file, b.Name, err)
	}

	j := &config.Job{
		Name:    b.Name,
		Script:  script,
		Needs:   b.Needs,
		Shell:   b.Shell,
		WorkDir: b.WorkDir,
		Source:  file,
	}

	if isExprDefined(ctx, b.Env, "env") {
		env, err := evalEnv(b.Env, l.evalCtx)
		if err != nil {
			return nil, fmt.Errorf("%s: job '%s': %w", file, b.Name, err)
		}
		j.Env = env
		ctxlog.FromContext(ctx).Debug("Job env decoded.", "job", b.Name, "keys", sortedKeys(env))
	}

	return j, nil
}
