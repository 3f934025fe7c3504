package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/jobgrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder often populates optional fields with non-nil, zero-width
// expression objects, so a simple nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Expression is nil, considering it undefined.", "attribute", attrName)
		return false
	}

	// A real attribute occupies bytes in the file, while a placeholder for an
	// omitted optional attribute has a zero-width range.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)

	return isDefined
}

// newEvalContext exposes the process environment as the `env` object, so
// job files can write `"${env.HOME}/cache"`.
func newEvalContext(environ []string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

func osEvalContext() *hcl.EvalContext {
	return newEvalContext(os.Environ())
}

// evalScript accepts either a single string or a list of strings; a list
// is joined into one script with newlines.
func evalScript(expr hcl.Expression, evalCtx *hcl.EvalContext) (string, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", diags
	}
	if val.IsNull() {
		return "", nil
	}
	if val.Type() == cty.String {
		return val.AsString(), nil
	}

	list, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return "", fmt.Errorf("script must be a string or a list of strings: %w", err)
	}
	var lines []string
	for it := list.ElementIterator(); it.Next(); {
		_, line := it.Element()
		if line.IsNull() {
			continue
		}
		lines = append(lines, line.AsString())
	}
	return strings.Join(lines, "\n"), nil
}

// evalEnv converts an env map expression into Go strings. Non-string
// scalar values such as numbers and bools are converted to their string form.
func evalEnv(expr hcl.Expression, evalCtx *hcl.EvalContext) (map[string]string, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}

	m, err := convert.Convert(val, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("env must be a map of strings: %w", err)
	}
	if m.LengthInt() == 0 {
		return nil, nil
	}

	out := make(map[string]string, m.LengthInt())
	for k, v := range m.AsValueMap() {
		if v.IsNull() {
			continue
		}
		out[k] = v.AsString()
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
