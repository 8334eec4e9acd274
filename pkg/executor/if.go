package executor

import (
	"fmt"

	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// IfExecutor is the two-port conditional (spec.md §4.D "Conditional"):
// every input item is routed to exactly one of "true"/"false" based on one
// operator-table comparison. A port with zero items fans out as NO-OUTPUT,
// not an empty sequence, so a single-input downstream node on the dead
// branch does not fire.
type IfExecutor struct{}

func NewIfExecutor() *IfExecutor { return &IfExecutor{} }

func (e *IfExecutor) NodeType() string { return "if" }

func (e *IfExecutor) Descriptor() types.NodeTypeDescriptor {
	return types.NodeTypeDescriptor{
		Type:        "if",
		DisplayName: "If",
		InputCount:  1,
		OutputPorts: []string{"true", "false"},
	}
}

func (e *IfExecutor) Validate(node types.Node) error {
	op, _ := node.Parameters["operator"].(string)
	if op == "" {
		return fmt.Errorf("if node %q missing operator parameter", node.Name)
	}
	return nil
}

func (e *IfExecutor) Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error) {
	items := input
	if len(items) == 0 {
		items = types.Items{types.NewItem(nil)}
	}

	var trueItems, falseItems types.Items
	for i, item := range items {
		params := ctx.ResolveParameters(node.Parameters, item, i)
		op := Operator(asString(params["operator"], ""))
		matched, err := EvaluateOperator(op, params["leftValue"], params["rightValue"])
		if err != nil {
			return nil, fmt.Errorf("if node %q: %w", node.Name, err)
		}
		if matched {
			trueItems = append(trueItems, item)
		} else {
			falseItems = append(falseItems, item)
		}
	}

	return Result{
		"true":  portValueOf(trueItems),
		"false": portValueOf(falseItems),
	}, nil
}

// portValueOf converts a possibly-nil accumulated slice into the correct
// PortValue: NO-OUTPUT when nothing landed on this branch, items otherwise.
func portValueOf(items types.Items) types.PortValue {
	if len(items) == 0 {
		return types.NoOutputValue
	}
	return types.ItemsValue(items)
}
