package executor

import (
	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// batchState is the opaque per-run state SplitInBatches keeps in
// ExecutionContext.SetInternalState between loop iterations.
type batchState struct {
	remaining        types.Items
	batchSize        int
	totalProcessed   int
	batchesProcessed int
}

// SplitInBatchesExecutor is the batch-loop node (spec.md §4.D "Batch
// loop"). The first call captures the full input sequence; every call
// after that (driven by the "loop" port routing back into this node)
// serves the next slice from the stored remainder and ignores whatever
// items the loop-back delivery itself carried, until the remainder is
// exhausted.
type SplitInBatchesExecutor struct{}

func NewSplitInBatchesExecutor() *SplitInBatchesExecutor { return &SplitInBatchesExecutor{} }

func (e *SplitInBatchesExecutor) NodeType() string { return "splitInBatches" }

func (e *SplitInBatchesExecutor) Descriptor() types.NodeTypeDescriptor {
	return types.NodeTypeDescriptor{
		Type:        "splitInBatches",
		DisplayName: "Split In Batches",
		InputCount:  1,
		OutputPorts: []string{"loop", "done"},
	}
}

func (e *SplitInBatchesExecutor) Validate(node types.Node) error { return nil }

func (e *SplitInBatchesExecutor) Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error) {
	raw, exists := ctx.GetInternalState(node.Name)
	state, ok := raw.(*batchState)
	if !exists || !ok {
		params := ctx.ResolveParameters(node.Parameters, types.NewItem(nil), 0)
		size := 1
		if n, err := toNumber(params["batchSize"]); err == nil && n >= 1 {
			size = int(n)
		}
		state = &batchState{remaining: append(types.Items(nil), input...), batchSize: size}
	}

	if len(state.remaining) == 0 {
		ctx.ClearInternalState(node.Name)
		summary := types.NewItem(map[string]interface{}{
			"totalProcessed":   state.totalProcessed,
			"batchesProcessed": state.batchesProcessed,
		})
		return Result{
			"loop": types.NoOutputValue,
			"done": types.ItemsValue(types.Items{summary}),
		}, nil
	}

	take := state.batchSize
	if take > len(state.remaining) {
		take = len(state.remaining)
	}
	batch := state.remaining[:take]
	state.remaining = state.remaining[take:]
	state.totalProcessed += take
	state.batchesProcessed++

	ctx.SetInternalState(node.Name, state)

	return Result{
		"loop": types.ItemsValue(batch),
		"done": types.NoOutputValue,
	}, nil
}
