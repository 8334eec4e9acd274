package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/yesoreyeram/fluxweave/pkg/config"
	"github.com/yesoreyeram/fluxweave/pkg/executor"
	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// failNTimesExecutor fails its first n calls, then delegates to a trigger
// passthrough. Used to exercise the retry policy (spec.md §8 scenario 4).
type failNTimesExecutor struct {
	n     int
	calls int
}

func (e *failNTimesExecutor) NodeType() string { return "flaky" }
func (e *failNTimesExecutor) Descriptor() types.NodeTypeDescriptor {
	return types.NodeTypeDescriptor{Type: "flaky", InputCount: 1, OutputPorts: []string{types.DefaultOutput}}
}
func (e *failNTimesExecutor) Validate(types.Node) error { return nil }
func (e *failNTimesExecutor) Execute(ctx executor.ExecutionContext, node types.Node, input types.Items) (executor.Result, error) {
	e.calls++
	if e.calls <= e.n {
		return nil, fmt.Errorf("synthetic failure %d", e.calls)
	}
	return executor.Result{types.DefaultOutput: types.ItemsValue(input)}, nil
}

func testRegistry(extra ...executor.NodeExecutor) *executor.Registry {
	reg := executor.NewRegistry()
	reg.MustRegister(executor.NewTriggerExecutor("start"))
	reg.MustRegister(executor.NewSetExecutor())
	reg.MustRegister(executor.NewIfExecutor())
	reg.MustRegister(executor.NewSwitchExecutor())
	reg.MustRegister(executor.NewMergeExecutor())
	reg.MustRegister(executor.NewSplitInBatchesExecutor())
	for _, e := range extra {
		reg.MustRegister(e)
	}
	return reg
}

func conn(src, srcPort, target, targetPort string) types.Connection {
	return types.Connection{SourceNode: src, SourceOutput: srcPort, TargetNode: target, TargetInput: targetPort}
}

func setNode(name string, assignments ...[2]string) types.Node {
	var list []interface{}
	for _, a := range assignments {
		list = append(list, map[string]interface{}{"name": a[0], "value": a[1]})
	}
	return types.Node{
		Name: name,
		Type: "set",
		Parameters: map[string]interface{}{
			"mode":        "manual",
			"assignments": list,
		},
	}
}

func runTest(t *testing.T, reg *executor.Registry, wf *types.Workflow, start string, items types.Items) *RunResult {
	t.Helper()
	eng := NewWithRegistry(reg)
	result, err := eng.Run(context.Background(), wf, start, items, types.ModeManual, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return result
}

// Scenario 1: Linear Set chain.
func TestLinearSetChain(t *testing.T) {
	wf := &types.Workflow{
		Name: "linear",
		Nodes: []types.Node{
			{Name: "Start", Type: "start"},
			setNode("SetFirst", [2]string{"first", "one"}),
			setNode("SetSecond", [2]string{"second", "two"}),
			setNode("SetThird", [2]string{"third", "three"}),
		},
		Connections: []types.Connection{
			conn("Start", "main", "SetFirst", "main"),
			conn("SetFirst", "main", "SetSecond", "main"),
			conn("SetSecond", "main", "SetThird", "main"),
		},
	}

	result := runTest(t, testRegistry(), wf, "Start", types.Items{types.NewItem(nil)})

	terminal := result.NodeData["SetThird"]
	if len(terminal) != 1 {
		t.Fatalf("expected 1 terminal item, got %d", len(terminal))
	}
	want := map[string]interface{}{"first": "one", "second": "two", "third": "three"}
	for k, v := range want {
		if terminal[0].JSON[k] != v {
			t.Errorf("terminal[%q] = %v, want %v", k, terminal[0].JSON[k], v)
		}
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}
}

// Scenario 2: Diamond with append Merge. Start fans its single input item
// out to three Set branches; each branch tags its copy, and a Merge(append)
// gathers the three copies before Finalize marks them done.
func TestDiamondAppendMerge(t *testing.T) {
	wf := &types.Workflow{
		Name: "diamond-merge",
		Nodes: []types.Node{
			{Name: "Start", Type: "start"},
			setNode("A", [2]string{"processedBy", "a"}),
			setNode("B", [2]string{"processedBy", "b"}),
			setNode("C", [2]string{"processedBy", "c"}),
			{Name: "Combine", Type: "merge", Parameters: map[string]interface{}{"mode": "append"}},
			setNode("Finalize", [2]string{"finalized", "true"}),
		},
		Connections: []types.Connection{
			conn("Start", "main", "A", "main"),
			conn("Start", "main", "B", "main"),
			conn("Start", "main", "C", "main"),
			conn("A", "main", "Combine", "main"),
			conn("B", "main", "Combine", "main"),
			conn("C", "main", "Combine", "main"),
			conn("Combine", "main", "Finalize", "main"),
		},
	}

	result := runTest(t, testRegistry(), wf, "Start", types.Items{types.NewItem(map[string]interface{}{"id": 1.0})})

	terminal := result.NodeData["Finalize"]
	if len(terminal) != 3 {
		t.Fatalf("expected 3 merged items, got %d: %+v", len(terminal), terminal)
	}
	seenBy := map[string]bool{}
	for _, it := range terminal {
		if it.JSON["finalized"] != "true" {
			t.Errorf("item missing finalized=true: %+v", it.JSON)
		}
		seenBy[fmt.Sprint(it.JSON["processedBy"])] = true
	}
	for _, want := range []string{"a", "b", "c"} {
		if !seenBy[want] {
			t.Errorf("expected a merged item processed by %q", want)
		}
	}
}

// Scenario 3: Keep-matches Merge.
func TestKeepMatchesMerge(t *testing.T) {
	// Branch A and B are fed directly from two trigger-like Set nodes
	// acting as independent sources into the same Merge.
	wf := &types.Workflow{
		Name: "keep-matches",
		Nodes: []types.Node{
			{Name: "Start", Type: "start"},
			{Name: "BranchA", Type: "set", Parameters: map[string]interface{}{"mode": "json", "keepOnlySet": true, "json": map[string]interface{}{}}},
			{Name: "BranchB", Type: "set", Parameters: map[string]interface{}{"mode": "json", "keepOnlySet": true, "json": map[string]interface{}{}}},
			{Name: "Join", Type: "merge", Parameters: map[string]interface{}{"mode": "keepMatches", "matchKey": "id"}},
		},
		Connections: []types.Connection{
			conn("Start", "main", "BranchA", "main"),
			conn("Start", "main", "BranchB", "main"),
			conn("BranchA", "main", "Join", "main"),
			conn("BranchB", "main", "Join", "main"),
		},
	}

	// BranchA/B are pass-through Set nodes here only to give Join two
	// distinct upstream edges; the actual per-branch items are supplied
	// via pinnedData so each branch emits its own fixed sequence
	// regardless of Start's input.
	for i := range wf.Nodes {
		switch wf.Nodes[i].Name {
		case "BranchA":
			wf.Nodes[i].PinnedData = types.Items{
				types.NewItem(map[string]interface{}{"id": 1.0}),
				types.NewItem(map[string]interface{}{"id": 2.0}),
				types.NewItem(map[string]interface{}{"id": 3.0}),
			}
		case "BranchB":
			wf.Nodes[i].PinnedData = types.Items{
				types.NewItem(map[string]interface{}{"id": 1.0}),
				types.NewItem(map[string]interface{}{"id": 3.0}),
			}
		}
	}

	result := runTest(t, testRegistry(), wf, "Start", types.Items{types.NewItem(nil)})

	terminal := result.NodeData["Join"]
	if len(terminal) != 2 {
		t.Fatalf("expected 2 matched items, got %d: %+v", len(terminal), terminal)
	}
	if terminal[0].JSON["id"] != 1.0 || terminal[1].JSON["id"] != 3.0 {
		t.Errorf("expected ids [1,3] in A-order, got %+v", terminal)
	}
}

// Scenario 4: retry then success.
func TestRetryThenSuccess(t *testing.T) {
	flaky := &failNTimesExecutor{n: 2}
	wf := &types.Workflow{
		Name: "retry",
		Nodes: []types.Node{
			{Name: "Start", Type: "start"},
			{Name: "Flaky", Type: "flaky", RetryOnFail: 2, RetryDelayMS: 1},
		},
		Connections: []types.Connection{
			conn("Start", "main", "Flaky", "main"),
		},
	}

	result := runTest(t, testRegistry(flaky), wf, "Start", types.Items{types.NewItem(nil)})

	if len(result.Errors) != 0 {
		t.Errorf("expected zero errors after eventual success, got %v", result.Errors)
	}
	if flaky.calls != 3 {
		t.Errorf("expected exactly 3 invocations, got %d", flaky.calls)
	}
}

// Scenario 5: continue-on-fail downstream.
func TestContinueOnFailDownstream(t *testing.T) {
	alwaysFail := &failNTimesExecutor{n: 1000}
	wf := &types.Workflow{
		Name: "continue-on-fail",
		Nodes: []types.Node{
			{Name: "Start", Type: "start"},
			{Name: "Flaky", Type: "flaky", ContinueOnFail: true},
			setNode("Recover", [2]string{"status", "recovered"}),
		},
		Connections: []types.Connection{
			conn("Start", "main", "Flaky", "main"),
			conn("Flaky", "main", "Recover", "main"),
		},
	}

	result := runTest(t, testRegistry(alwaysFail), wf, "Start", types.Items{types.NewItem(nil)})

	if len(result.Errors) != 1 {
		t.Fatalf("expected exactly one recorded error, got %d: %+v", len(result.Errors), result.Errors)
	}
	terminal := result.NodeData["Recover"]
	if len(terminal) != 1 {
		t.Fatalf("expected 1 terminal item, got %d", len(terminal))
	}
	if terminal[0].JSON["status"] != "recovered" {
		t.Errorf("status = %v, want recovered", terminal[0].JSON["status"])
	}
	if terminal[0].JSON["_errorNode"] != "Flaky" {
		t.Errorf("_errorNode = %v, want Flaky", terminal[0].JSON["_errorNode"])
	}
}

// Scenario 6: batch loop.
func TestBatchLoop(t *testing.T) {
	wf := &types.Workflow{
		Name: "batch-loop",
		Nodes: []types.Node{
			{Name: "Start", Type: "start"},
			{Name: "Batcher", Type: "splitInBatches", Parameters: map[string]interface{}{"batchSize": float64(3)}},
			setNode("Touch", [2]string{"touched", "true"}),
		},
		Connections: []types.Connection{
			conn("Start", "main", "Batcher", "main"),
			conn("Batcher", "loop", "Touch", "main"),
			conn("Touch", "main", "Batcher", "main"),
		},
	}

	items := make(types.Items, 10)
	for i := range items {
		items[i] = types.NewItem(map[string]interface{}{"n": float64(i)})
	}

	eng := NewWithRegistry(testRegistry())
	result, err := eng.Run(context.Background(), wf, "Start", items, types.ModeManual, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	done := result.NodeData["Batcher"]
	if len(done) != 1 {
		t.Fatalf("expected Batcher's final state to be the done summary, got %d items: %+v", len(done), done)
	}
	if done[0].JSON["totalProcessed"] != 10 {
		t.Errorf("totalProcessed = %v, want 10", done[0].JSON["totalProcessed"])
	}
	if done[0].JSON["batchesProcessed"] != 4 {
		t.Errorf("batchesProcessed = %v, want 4", done[0].JSON["batchesProcessed"])
	}
}

// Invariant: an unknown start node fails with ErrStartNodeMissing and no
// RunResult.
func TestRunUnknownStartNode(t *testing.T) {
	wf := &types.Workflow{
		Name:  "empty",
		Nodes: []types.Node{{Name: "Start", Type: "start"}},
	}
	eng := NewWithRegistry(testRegistry())
	_, err := eng.Run(context.Background(), wf, "DoesNotExist", nil, types.ModeManual, nil)
	if err == nil {
		t.Fatal("expected an error for an unknown start node")
	}
}

// A two-node chain runs to completion without error. The run-count map
// lives inside Run's runContext and is not part of RunResult, so this test
// does not inspect run counts.
func TestNodeRunCountInvariant(t *testing.T) {
	wf := &types.Workflow{
		Name: "invariant",
		Nodes: []types.Node{
			{Name: "Start", Type: "start"},
			setNode("Only", [2]string{"x", "1"}),
		},
		Connections: []types.Connection{conn("Start", "main", "Only", "main")},
	}
	eng := NewWithRegistry(testRegistry())
	_, err := eng.Run(context.Background(), wf, "Start", nil, types.ModeManual, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

// Bounded-abort: a two-node cycle with no exit trips the step ceiling and
// is recorded as an error rather than hanging the test.
func TestBoundedAbort(t *testing.T) {
	wf := &types.Workflow{
		Name: "cycle",
		Nodes: []types.Node{
			{Name: "Start", Type: "start"},
			setNode("Loop", [2]string{"x", "1"}),
		},
		Connections: []types.Connection{
			conn("Start", "main", "Loop", "main"),
			conn("Loop", "main", "Loop", "main"),
		},
	}
	cfg := config.Default()
	cfg.MaxSteps = 5
	eng := NewWithRegistry(testRegistry()).withConfig(cfg)
	result, err := eng.Run(context.Background(), wf, "Start", nil, types.ModeManual, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	found := false
	for _, e := range result.Errors {
		if e.Message == "Execution exceeded maximum iterations" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a bounded-abort error to be recorded, got %+v", result.Errors)
	}
}
