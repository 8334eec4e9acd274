package executor

import "github.com/yesoreyeram/fluxweave/pkg/types"

// TriggerExecutor backs every zero-input entry point (Start, Webhook, Cron,
// ErrorTrigger): it passes its input items through unchanged on main, or a
// single empty item when invoked with none, per spec.md §4.D.
type TriggerExecutor struct {
	nodeType string
}

func NewTriggerExecutor(nodeType string) *TriggerExecutor {
	return &TriggerExecutor{nodeType: nodeType}
}

func (e *TriggerExecutor) NodeType() string { return e.nodeType }

func (e *TriggerExecutor) Descriptor() types.NodeTypeDescriptor {
	return types.NodeTypeDescriptor{
		Type:        e.nodeType,
		DisplayName: e.nodeType,
		InputCount:  0,
		OutputPorts: []string{types.DefaultOutput},
	}
}

func (e *TriggerExecutor) Validate(node types.Node) error { return nil }

func (e *TriggerExecutor) Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error) {
	items := input
	if len(items) == 0 {
		items = types.Items{types.NewItem(nil)}
	}
	return Result{types.DefaultOutput: types.ItemsValue(items)}, nil
}
