package formats

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// HCL loads .hcl files. Attributes become keys, unlabeled blocks become
// nested mappings and labeled blocks nest one mapping level per label:
//
//	optimizer_target = "torch.optim.Adam"
//	scheduler "one_cycle" { max_lr = 0.01 }
//
// decodes to {optimizer_target: ..., scheduler: {one_cycle: {max_lr: 0.01}}}.
// Expressions may call a small set of cty stdlib functions. HCL itself
// consumes "${...}", so resolver placeholders are written "$${run_id}".
type HCL struct{}

func (HCL) Extensions() []string { return []string{"hcl"} }

func (HCL) Load(_ context.Context, path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeHCL(path, data)
}

// DecodeHCL parses and evaluates an HCL document.
func DecodeHCL(name string, data []byte) (map[string]any, error) {
	file, diags := hclsyntax.ParseConfig(data, name, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %s", name, diags.Error())
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("failed to parse %s: unexpected body type %T", name, file.Body)
	}
	out, diags := decodeBody(body, evalContext())
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to evaluate %s: %s", name, diags.Error())
	}
	return out, nil
}

func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"abs":      stdlib.AbsoluteFunc,
			"ceil":     stdlib.CeilFunc,
			"coalesce": stdlib.CoalesceFunc,
			"concat":   stdlib.ConcatFunc,
			"floor":    stdlib.FloorFunc,
			"format":   stdlib.FormatFunc,
			"join":     stdlib.JoinFunc,
			"length":   stdlib.LengthFunc,
			"lower":    stdlib.LowerFunc,
			"max":      stdlib.MaxFunc,
			"min":      stdlib.MinFunc,
			"upper":    stdlib.UpperFunc,
		},
	}
}

func decodeBody(body *hclsyntax.Body, evalCtx *hcl.EvalContext) (map[string]any, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	out := map[string]any{}

	names := make([]string, 0, len(body.Attributes))
	for name := range body.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		attr := body.Attributes[name]
		val, valDiags := attr.Expr.Value(evalCtx)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			continue
		}
		goVal, err := ctyToGo(val)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported attribute value",
				Detail:   fmt.Sprintf("Attribute %q: %v.", name, err),
				Subject:  attr.Expr.Range().Ptr(),
			})
			continue
		}
		out[name] = goVal
	}

	for _, block := range body.Blocks {
		if _, clash := body.Attributes[block.Type]; clash {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Block conflicts with attribute",
				Detail:   fmt.Sprintf("%q is defined both as an attribute and as a block.", block.Type),
				Subject:  block.DefRange().Ptr(),
			})
			continue
		}
		inner, innerDiags := decodeBody(block.Body, evalCtx)
		diags = append(diags, innerDiags...)

		target := out
		keys := append([]string{block.Type}, block.Labels...)
		for _, k := range keys[:len(keys)-1] {
			next, ok := target[k].(map[string]any)
			if !ok {
				next = map[string]any{}
				target[k] = next
			}
			target = next
		}
		last := keys[len(keys)-1]
		if _, dup := target[last]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate block",
				Detail:   fmt.Sprintf("Only one %q block with these labels is allowed.", block.Type),
				Subject:  block.DefRange().Ptr(),
			})
			continue
		}
		target[last] = inner
	}
	return out, diags
}

// ctyToGo converts an evaluated cty value into the normalized tree shape.
// Whole numbers become int64; all other numbers become float64.
func ctyToGo(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	v, _ = v.Unmark()
	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Bool:
		return v.True(), nil
	case t == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case t.IsListType(), t.IsTupleType(), t.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			goElem, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, goElem)
		}
		return out, nil
	case t.IsMapType(), t.IsObjectType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			goElem, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out[key.AsString()] = goElem
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported type %s", t.FriendlyName())
}
