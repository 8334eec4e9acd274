package executor

import (
	"time"

	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// WaitExecutor suspends the run for a bounded duration before passing
// items through unchanged (spec.md §4.D "Wait"). The requested duration is
// clamped to Config.WaitMaxDurationMS so a misconfigured workflow cannot
// stall a run indefinitely.
type WaitExecutor struct{}

func NewWaitExecutor() *WaitExecutor { return &WaitExecutor{} }

func (e *WaitExecutor) NodeType() string { return "wait" }

func (e *WaitExecutor) Descriptor() types.NodeTypeDescriptor {
	return types.NodeTypeDescriptor{
		Type:        "wait",
		DisplayName: "Wait",
		InputCount:  1,
		OutputPorts: []string{types.DefaultOutput},
	}
}

func (e *WaitExecutor) Validate(node types.Node) error { return nil }

func (e *WaitExecutor) Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error) {
	params := ctx.ResolveParameters(node.Parameters, types.NewItem(nil), 0)
	config := ctx.Config()

	requestedMS, _ := toNumber(params["durationMS"])
	duration := time.Duration(requestedMS) * time.Millisecond
	maxDuration := time.Duration(config.WaitMaxDurationMS) * time.Millisecond
	if duration <= 0 {
		duration = 0
	}
	if duration > maxDuration {
		duration = maxDuration
	}

	if duration > 0 {
		time.Sleep(duration)
	}

	items := input
	if len(items) == 0 {
		items = types.Items{types.NewItem(nil)}
	}
	return Result{types.DefaultOutput: types.ItemsValue(items)}, nil
}
