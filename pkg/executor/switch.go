package executor

import (
	"fmt"
	"strconv"

	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// SwitchExecutor is the dynamic-arity router (spec.md §4.D "Router"):
// rules mode evaluates a list of operator-table rules per item, first match
// wins; expression mode evaluates a single expression to an integer output
// index. Items matching nothing land on the configured fallback port.
type SwitchExecutor struct{}

func NewSwitchExecutor() *SwitchExecutor { return &SwitchExecutor{} }

func (e *SwitchExecutor) NodeType() string { return "switch" }

func (e *SwitchExecutor) Descriptor() types.NodeTypeDescriptor {
	return types.NodeTypeDescriptor{
		Type:        "switch",
		DisplayName: "Switch",
		InputCount:  1,
		OutputPorts: []string{"output0", "output1", "output2", "output3", "fallback"},
	}
}

func (e *SwitchExecutor) Validate(node types.Node) error {
	mode := asString(node.Parameters["mode"], "rules")
	if mode != "rules" && mode != "expression" {
		return fmt.Errorf("switch node %q: mode must be rules or expression, got %q", node.Name, mode)
	}
	return nil
}

func (e *SwitchExecutor) Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error) {
	items := input
	if len(items) == 0 {
		items = types.Items{types.NewItem(nil)}
	}

	buckets := map[string]types.Items{}
	seen := map[string]bool{}
	deliver := func(port string, item types.Item) {
		buckets[port] = append(buckets[port], item)
		seen[port] = true
	}

	for i, item := range items {
		params := ctx.ResolveParameters(node.Parameters, item, i)
		mode := asString(params["mode"], "rules")
		fallback := fallbackPort(params)
		seen[fallback] = true

		switch mode {
		case "expression":
			port := fallback
			if idx, ok := asOutputIndex(params["expression"]); ok {
				port = idx
				seen[port] = true
			}
			deliver(port, item)
		default: // rules
			port := fallback
			for _, r := range asSlice(params["rules"]) {
				rule, ok := r.(map[string]interface{})
				if !ok {
					continue
				}
				op := Operator(asString(rule["operator"], ""))
				matched, err := EvaluateOperator(op, rule["leftValue"], rule["rightValue"])
				if err == nil && matched {
					port = outputPortFor(rule["output"])
					seen[port] = true
					break
				}
			}
			deliver(port, item)
		}
	}

	result := make(Result, len(seen))
	for port := range seen {
		result[port] = portValueOf(buckets[port])
	}
	return result, nil
}

func fallbackPort(params map[string]interface{}) string {
	if v, ok := params["fallbackOutput"]; ok {
		return outputPortFor(v)
	}
	return "fallback"
}

func outputPortFor(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return "output" + strconv.Itoa(int(val))
	case int:
		return "output" + strconv.Itoa(val)
	default:
		return "fallback"
	}
}

// asOutputIndex coerces the (already expression-resolved) "expression"
// parameter value to "outputN", returning false — meaning "use fallback" —
// on a non-numeric or negative result.
func asOutputIndex(v interface{}) (string, bool) {
	n, err := toNumber(v)
	if err != nil || n < 0 {
		return "", false
	}
	return "output" + strconv.Itoa(int(n)), true
}
