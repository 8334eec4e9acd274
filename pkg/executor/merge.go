package executor

import (
	"fmt"
	"sort"

	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// MergeExecutor is the dynamic-arity (∞ inputs) fan-in node (spec.md §4.D
// "Merge"). The runner only calls Execute once every unique
// (sourceNode, sourceOutput) edge into this node has delivered data or
// NO-OUTPUT for the current run index; Merge reads that raw per-edge
// bucket itself via ExecutionContext.PendingInputs rather than relying on
// a single concatenated `input` argument, since three of its four modes
// need to keep the per-source sequences distinct.
type MergeExecutor struct{}

func NewMergeExecutor() *MergeExecutor { return &MergeExecutor{} }

func (e *MergeExecutor) NodeType() string { return "merge" }

func (e *MergeExecutor) Descriptor() types.NodeTypeDescriptor {
	return types.NodeTypeDescriptor{
		Type:        "merge",
		DisplayName: "Merge",
		InputCount:  types.InfiniteInputs,
		OutputPorts: []string{types.DefaultOutput},
	}
}

func (e *MergeExecutor) Validate(node types.Node) error {
	mode := asString(node.Parameters["mode"], "append")
	switch mode {
	case "append", "waitForAll", "keepMatches", "combinePairs":
		return nil
	default:
		return fmt.Errorf("merge node %q: unknown mode %q", node.Name, mode)
	}
}

func (e *MergeExecutor) Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error) {
	runIndex := ctx.CurrentRunIndex()
	pending := ctx.PendingInputs(node.Name, runIndex)
	defer ctx.ClearPendingInputs(node.Name, runIndex)

	// Stable source order: sort edge keys so output does not depend on
	// map iteration order or delivery timing.
	keys := make([]string, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sequences := make([]types.Items, 0, len(keys))
	for _, k := range keys {
		pv := pending[k]
		if pv.IsNoOutput() {
			sequences = append(sequences, types.Items{})
			continue
		}
		sequences = append(sequences, pv.Items())
	}

	params := ctx.ResolveParameters(node.Parameters, types.NewItem(nil), 0)
	mode := asString(params["mode"], "append")

	var out types.Items
	switch mode {
	case "waitForAll":
		out = mergeWaitForAll(sequences)
	case "keepMatches":
		out = mergeKeepMatches(sequences, asString(params["matchKey"], "id"))
	case "combinePairs":
		out = mergeCombinePairs(sequences)
	default: // append
		out = mergeAppend(sequences)
	}

	return Result{types.DefaultOutput: portValueOf(out)}, nil
}

func mergeAppend(sequences []types.Items) types.Items {
	var out types.Items
	for _, seq := range sequences {
		out = append(out, seq...)
	}
	return out
}

func mergeWaitForAll(sequences []types.Items) types.Items {
	raw := make([]interface{}, len(sequences))
	for i, seq := range sequences {
		items := make([]interface{}, len(seq))
		for j, it := range seq {
			items[j] = it.JSON
		}
		raw[i] = items
	}
	return types.Items{types.NewItem(map[string]interface{}{"inputs": raw})}
}

func mergeKeepMatches(sequences []types.Items, matchKey string) types.Items {
	if len(sequences) == 0 {
		return nil
	}
	others := sequences[1:]
	var out types.Items
	for _, item := range sequences[0] {
		key, ok := types.GetPath(item.JSON, matchKey)
		if !ok {
			continue
		}
		matchesAll := true
		for _, seq := range others {
			if !sequenceHasKey(seq, matchKey, key) {
				matchesAll = false
				break
			}
		}
		if matchesAll {
			out = append(out, item)
		}
	}
	return out
}

func sequenceHasKey(seq types.Items, matchKey string, want interface{}) bool {
	for _, item := range seq {
		if v, ok := types.GetPath(item.JSON, matchKey); ok && fmt.Sprint(v) == fmt.Sprint(want) {
			return true
		}
	}
	return false
}

func mergeCombinePairs(sequences []types.Items) types.Items {
	maxLen := 0
	for _, seq := range sequences {
		if len(seq) > maxLen {
			maxLen = len(seq)
		}
	}
	out := make(types.Items, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		combined := map[string]interface{}{}
		for srcIdx, seq := range sequences {
			if i < len(seq) {
				combined[fmt.Sprintf("input%d", srcIdx)] = seq[i].JSON
			}
		}
		out = append(out, types.NewItem(combined))
	}
	return out
}
