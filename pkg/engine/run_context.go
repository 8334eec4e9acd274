package engine

import (
	"fmt"
	"time"

	"github.com/yesoreyeram/fluxweave/pkg/executor"
	"github.com/yesoreyeram/fluxweave/pkg/expression"
	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// runContext is the per-run state backing executor.ExecutionContext: node
// outputs, per-node opaque state, the multi-input join buffers, and the
// append-only error log. It is created fresh for every Engine.Run call and
// never shared across runs.
type runContext struct {
	workflow    *types.Workflow
	executionID string
	mode        types.ExecutionMode
	cfg         executor.ExecutorConfig
	exprEngine  *expression.Engine
	env         map[string]string

	nodeStates        map[string]types.Items
	nodeRunCounts     map[string]int
	nodeInternalState map[string]interface{}
	pendingInputs     map[string]map[string]types.PortValue // "<node>:<runIndex>" -> edgeKey -> value

	errors []types.ErrorRecord

	currentRunIndex int
	currentInput    types.Items
}

func newRunContext(workflow *types.Workflow, executionID string, mode types.ExecutionMode, cfg executor.ExecutorConfig) *runContext {
	return &runContext{
		workflow:          workflow,
		executionID:       executionID,
		mode:              mode,
		cfg:               cfg,
		exprEngine:        expression.New(),
		env:               envSnapshot(),
		nodeStates:        map[string]types.Items{},
		nodeRunCounts:     map[string]int{},
		nodeInternalState: map[string]interface{}{},
		pendingInputs:     map[string]map[string]types.PortValue{},
	}
}

func bucketKey(nodeName string, runIndex int) string {
	return fmt.Sprintf("%s:%d", nodeName, runIndex)
}

// pendingBucket returns the live join buffer for (nodeName, runIndex),
// creating it on first access.
func (rc *runContext) pendingBucket(nodeName string, runIndex int) map[string]types.PortValue {
	key := bucketKey(nodeName, runIndex)
	bucket, ok := rc.pendingInputs[key]
	if !ok {
		bucket = map[string]types.PortValue{}
		rc.pendingInputs[key] = bucket
	}
	return bucket
}

func (rc *runContext) recordError(nodeName, message string) {
	rc.errors = append(rc.errors, types.ErrorRecord{
		NodeName:  nodeName,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

// ============================================================================
// executor.ExecutionContext implementation
// ============================================================================

func (rc *runContext) NodeOutput(nodeName string) (types.Items, bool) {
	items, ok := rc.nodeStates[nodeName]
	return items, ok
}

func (rc *runContext) GetInternalState(nodeName string) (interface{}, bool) {
	v, ok := rc.nodeInternalState[nodeName]
	return v, ok
}

func (rc *runContext) SetInternalState(nodeName string, value interface{}) {
	rc.nodeInternalState[nodeName] = value
}

func (rc *runContext) ClearInternalState(nodeName string) {
	delete(rc.nodeInternalState, nodeName)
}

func (rc *runContext) PendingInputs(nodeName string, runIndex int) map[string]types.PortValue {
	return rc.pendingBucket(nodeName, runIndex)
}

func (rc *runContext) ClearPendingInputs(nodeName string, runIndex int) {
	delete(rc.pendingInputs, bucketKey(nodeName, runIndex))
}

func (rc *runContext) CurrentRunIndex() int { return rc.currentRunIndex }

func (rc *runContext) ExecutionID() string { return rc.executionID }

func (rc *runContext) Mode() types.ExecutionMode { return rc.mode }

func (rc *runContext) Config() executor.ExecutorConfig { return rc.cfg }

// ResolveParameters implements spec.md §4.B's expression context for one
// item: $json is that item's payload, $input is the full input sequence
// the current node was dispatched with, $node is every other node's last
// main-output item, $env is the run-start environment snapshot, and
// $execution/$itemIndex round out the contract.
func (rc *runContext) ResolveParameters(params map[string]interface{}, item types.Item, itemIndex int) map[string]interface{} {
	if params == nil {
		return map[string]interface{}{}
	}

	exprCtx := &expression.Context{
		JSON:        item.JSON,
		Input:       itemsToMaps(rc.currentInput),
		NodeOutputs: rc.nodeOutputSnapshot(),
		Env:         rc.env,
		ExecutionID: rc.executionID,
		Mode:        string(rc.mode),
		ItemIndex:   itemIndex,
	}

	resolved := rc.exprEngine.Resolve(params, exprCtx)
	out, ok := resolved.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return out
}

func (rc *runContext) nodeOutputSnapshot() map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(rc.nodeStates))
	for name, items := range rc.nodeStates {
		if len(items) == 0 {
			out[name] = map[string]interface{}{}
			continue
		}
		out[name] = items[len(items)-1].JSON
	}
	return out
}

func itemsToMaps(items types.Items) []map[string]interface{} {
	out := make([]map[string]interface{}, len(items))
	for i, it := range items {
		out[i] = it.JSON
	}
	return out
}
