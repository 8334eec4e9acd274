package executor

import (
	"fmt"

	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// SetExecutor is the field-mutator node (spec.md §4.D "Field mutator").
// Manual mode applies an ordered list of {name,value} dot-path assignments;
// JSON mode shallow-merges a literal object. Both honor keepOnlySet,
// deletion, and rename.
type SetExecutor struct{}

func NewSetExecutor() *SetExecutor { return &SetExecutor{} }

func (e *SetExecutor) NodeType() string { return "set" }

func (e *SetExecutor) Descriptor() types.NodeTypeDescriptor {
	return types.NodeTypeDescriptor{
		Type:        "set",
		DisplayName: "Set",
		InputCount:  1,
		OutputPorts: []string{types.DefaultOutput},
	}
}

func (e *SetExecutor) Validate(node types.Node) error {
	mode := asString(node.Parameters["mode"], "manual")
	if mode != "manual" && mode != "json" {
		return fmt.Errorf("set node %q: mode must be manual or json, got %q", node.Name, mode)
	}
	return nil
}

func (e *SetExecutor) Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error) {
	items := input
	if len(items) == 0 {
		items = types.Items{types.NewItem(nil)}
	}

	out := make(types.Items, 0, len(items))
	for i, item := range items {
		params := ctx.ResolveParameters(node.Parameters, item, i)

		var result map[string]interface{}
		if asBool(params["keepOnlySet"]) {
			result = map[string]interface{}{}
		} else {
			result = cloneJSON(item.JSON)
		}

		mode := asString(params["mode"], "manual")
		switch mode {
		case "json":
			if obj, ok := params["json"].(map[string]interface{}); ok {
				for k, v := range obj {
					result[k] = v
				}
			}
		default: // manual
			for _, raw := range asSlice(params["assignments"]) {
				assignment, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				name := asString(assignment["name"], "")
				if name == "" {
					continue
				}
				types.SetPath(result, name, assignment["value"])
			}
		}

		for _, raw := range asSlice(params["delete"]) {
			if path, ok := raw.(string); ok {
				types.DeletePath(result, path)
			}
		}

		for _, raw := range asSlice(params["rename"]) {
			entry, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			from := asString(entry["from"], "")
			to := asString(entry["to"], "")
			if from == "" || to == "" {
				continue
			}
			if value, ok := types.GetPath(result, from); ok {
				types.DeletePath(result, from)
				types.SetPath(result, to, value)
			}
		}

		out = append(out, types.NewItem(result))
	}

	return Result{types.DefaultOutput: types.ItemsValue(out)}, nil
}

func cloneJSON(v map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}
