// Package engine provides the workflow execution engine: the FIFO
// job-queue scheduler that drives a Workflow graph to quiescence, wiring
// together the node registry, the expression engine, and the event stream.
package engine

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yesoreyeram/fluxweave/pkg/config"
	"github.com/yesoreyeram/fluxweave/pkg/executor"
	"github.com/yesoreyeram/fluxweave/pkg/graph"
	"github.com/yesoreyeram/fluxweave/pkg/httpnode"
	"github.com/yesoreyeram/fluxweave/pkg/logging"
	"github.com/yesoreyeram/fluxweave/pkg/observer"
	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// defaultMaxSteps is the step ceiling used when Config.MaxSteps is unset.
const defaultMaxSteps = 1000

// ============================================================================
// Engine Definition
// ============================================================================

// Engine drives workflow runs against a shared node registry and
// configuration. An Engine is stateless between runs — all per-run state
// lives in the runContext created fresh by Run.
//
// The Engine uses the following design patterns:
//   - Strategy Pattern: per-node-type execution via the executor Registry
//   - Observer Pattern: typed event stream, fan-out to registered observers
//   - Template Method: Run defines the step algorithm; node behavior is
//     delegated entirely to the registry
type Engine struct {
	registry         *executor.Registry
	config           *config.Config
	observerMgr      *observer.Manager
	logger           observer.Logger
	structuredLogger *logging.Logger
}

// ============================================================================
// Constructor Functions
// ============================================================================

// New creates an Engine with the builtin node registry and default
// configuration.
func New() *Engine {
	return NewWithRegistry(executor.NewBuiltinRegistry(httpnode.NewRegistry()))
}

// NewWithConfig creates an Engine with the builtin node registry and a
// caller-supplied configuration.
func NewWithConfig(cfg *config.Config) *Engine {
	return NewWithRegistry(executor.NewBuiltinRegistry(httpnode.NewRegistry())).withConfig(cfg)
}

// NewWithRegistry creates an Engine with a custom executor registry and
// default configuration. Callers that need additional node types should
// build their own registry (executor.NewRegistry(), MustRegister the
// builtins they want plus their own) and pass it here.
func NewWithRegistry(registry *executor.Registry) *Engine {
	if registry == nil {
		registry = executor.NewBuiltinRegistry(httpnode.NewRegistry())
	}
	return &Engine{
		registry:         registry,
		config:           config.Default(),
		observerMgr:      observer.NewManager(),
		logger:           &observer.NoOpLogger{},
		structuredLogger: logging.New(logging.DefaultConfig()),
	}
}

func (e *Engine) withConfig(cfg *config.Config) *Engine {
	if cfg != nil {
		e.config = cfg
	}
	return e
}

// WithConfig overrides the engine's configuration after construction.
// Returns the engine for method chaining — used by callers that build a
// custom registry (e.g. to share an httpnode.Registry with an HTTP
// boundary adapter) via NewWithRegistry and still want caller-supplied
// limits instead of config.Default().
func (e *Engine) WithConfig(cfg *config.Config) *Engine {
	return e.withConfig(cfg)
}

// generateExecutionID creates a unique execution identifier, the same
// google/uuid scheme pkg/storage uses for workflow ids, so execution and
// workflow records share one id format across the persisted record shapes
// spec §6 describes.
func generateExecutionID() string {
	return uuid.New().String()
}

// ============================================================================
// Observer and Logger Configuration
// ============================================================================

// RegisterObserver adds an observer to receive execution events. Returns
// the engine for method chaining.
func (e *Engine) RegisterObserver(obs observer.Observer) *Engine {
	if obs != nil {
		e.observerMgr.Register(obs)
	}
	return e
}

// SetLogger sets the observer-facing logger used by default console
// observers. Returns the engine for method chaining.
func (e *Engine) SetLogger(logger observer.Logger) *Engine {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// SetStructuredLogger overrides the engine's slog-backed structured
// logger. Returns the engine for method chaining.
func (e *Engine) SetStructuredLogger(logger *logging.Logger) *Engine {
	if logger != nil {
		e.structuredLogger = logger
	}
	return e
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config { return e.config }

// Registry returns the engine's node registry.
func (e *Engine) Registry() *executor.Registry { return e.registry }

// ============================================================================
// Run result
// ============================================================================

// RunResult is the terminal state of one execution, shaped after spec §6's
// persisted Execution record (minus the fields a storage layer owns:
// workflowId, workflowName, createdAt bookkeeping).
type RunResult struct {
	ExecutionID string
	Status      string // Run always sets StatusCompleted; failures are reported in Errors
	Mode        types.ExecutionMode
	StartTime   time.Time
	EndTime     time.Time
	Errors      []types.ErrorRecord
	NodeData    map[string]types.Items
}

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ============================================================================
// Validation (spec §4.A, submission time)
// ============================================================================

// Validate checks static workflow structure using pkg/graph's structural
// checks (node names, connection endpoints, retry bounds) with no registry
// lookup — so an unknown node type is deliberately NOT rejected here; per
// spec §7, UnknownNodeType is a runtime failure, not a validation-time one.
func Validate(workflow *types.Workflow) error {
	return graph.Validate(workflow)
}

// Validate checks workflow the same way the package-level Validate does,
// plus — using this engine's own registry — SPEC_FULL.md's submission-time
// parameter-schema check: every node's type must be registered, and its
// resolved parameters must satisfy that type's declared ParameterSchema.
// Unlike the package-level Validate, an unregistered node type is rejected
// here immediately, since a type absent from this engine's registry can
// never execute regardless of whether the node is reachable from the start
// node.
func (e *Engine) Validate(workflow *types.Workflow) error {
	return graph.ValidateWithRegistry(workflow, e.descriptorLookup)
}

func (e *Engine) descriptorLookup(nodeType string) (types.NodeTypeDescriptor, bool) {
	return e.registry.Descriptor(nodeType)
}

// ============================================================================
// Run — the scheduler core (spec §4.E)
// ============================================================================

// Run drives workflow from startNodeName to quiescence. initialItems
// defaults to a single empty item when nil or empty. onEvent, if non-nil,
// is registered as an additional observer for the duration of this run
// only.
func (e *Engine) Run(ctx context.Context, workflow *types.Workflow, startNodeName string, initialItems types.Items, mode types.ExecutionMode, onEvent observer.Observer) (*RunResult, error) {
	// Structural-only check here, deliberately more lenient than the
	// exported Engine.Validate: a node whose type never got registered is
	// left for the runtime UnknownNodeType path below (spec §7 treats it
	// as a per-node runtime failure), not rejected up front, since an
	// unreachable node of an unknown type should not block a run.
	if err := Validate(workflow); err != nil {
		return nil, err
	}
	for _, n := range workflow.Nodes {
		exec := e.registry.GetExecutor(n.Type)
		if exec == nil {
			continue
		}
		if err := exec.Validate(n); err != nil {
			return nil, err
		}
		if descriptor, ok := e.registry.Descriptor(n.Type); ok {
			if err := graph.ValidateParameters(n.Parameters, descriptor.ParameterSchema); err != nil {
				return nil, types.NewValidationError("node %s: %v", n.Name, err)
			}
		}
	}

	executionID := generateExecutionID()
	startTime := time.Now()
	slog := e.structuredLogger.WithWorkflowID(workflow.ID).WithExecutionID(executionID)

	mgr := e.observerMgr
	if onEvent != nil {
		mgr = observer.NewManagerWithObservers(append(append([]observer.Observer{}, e.runtimeObservers()...), onEvent)...)
	}

	emit := func(ev observer.Event) {
		ev.ExecutionID = executionID
		ev.Timestamp = time.Now()
		mgr.Notify(ctx, ev)
	}

	emit(observer.Event{Type: observer.EventExecutionStart})
	slog.Info("execution started")

	if _, ok := workflow.NodeByName(startNodeName); !ok {
		err := fmt.Errorf("%w: %q", types.ErrStartNodeMissing, startNodeName)
		emit(observer.Event{Type: observer.EventExecutionError, Error: err})
		slog.WithError(err).Error("start node not found")
		return nil, err
	}

	if len(initialItems) == 0 {
		initialItems = types.Items{types.NewItem(nil)}
	}

	rc := newRunContext(workflow, executionID, mode, e.toExecutorConfig())

	type queueEntry = types.ExecutionJob
	queue := []queueEntry{{NodeName: startNodeName, Items: initialItems}}

	startedNodes := map[string]bool{}
	completedCount := 0

	maxSteps := e.config.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	steps := 0
	bounded := false

stepLoop:
	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			rc.recordError("", "execution cancelled")
			break stepLoop
		default:
		}

		if steps >= maxSteps {
			bounded = true
			break
		}
		steps++

		job := queue[0]
		queue = queue[1:]

		node, ok := workflow.NodeByName(job.NodeName)
		if !ok {
			// A target was removed from under a pending delivery; nothing
			// sane to do but drop it.
			continue
		}

		descriptor, hasExecutor := e.registry.Descriptor(node.Type)
		if !hasExecutor {
			err := &types.UnknownNodeTypeError{NodeType: node.Type}
			rc.recordError(node.Name, err.Error())
			emit(observer.Event{Type: observer.EventNodeError, NodeName: node.Name, NodeType: node.Type, Error: err})
			continue
		}

		isMultiInput := descriptor.InputCount > 1 || descriptor.InputCount == types.InfiniteInputs

		var inputItems types.Items
		if isMultiInput {
			required := len(workflow.UniqueIncomingEdgeKeys(node.Name))
			bucket := rc.pendingBucket(node.Name, job.RunIndex)
			if required == 0 || len(bucket) < required {
				// Not ready yet (or already fired and cleared by a stale
				// duplicate dispatch) — buffered, nothing more to do.
				continue
			}
			inputItems = flattenPending(bucket)
		} else {
			inputItems = job.Items
		}

		rc.currentRunIndex = job.RunIndex
		rc.currentInput = inputItems

		if !startedNodes[node.Name] {
			startedNodes[node.Name] = true
			emit(observer.Event{Type: observer.EventNodeStart, NodeName: node.Name, NodeType: node.Type})
		}

		var result executor.Result
		var execErr error

		if len(node.PinnedData) > 0 {
			result = executor.Result{types.DefaultOutput: types.ItemsValue(node.PinnedData)}
		} else {
			attempts := node.RetryOnFail + 1
			for attempt := 0; attempt < attempts; attempt++ {
				result, execErr = e.registry.Execute(rc, *node, inputItems)
				if execErr == nil {
					break
				}
				if attempt < attempts-1 && node.RetryDelayMS > 0 {
					time.Sleep(time.Duration(node.RetryDelayMS) * time.Millisecond)
				}
			}
		}

		if execErr != nil {
			rc.recordError(node.Name, execErr.Error())
			emit(observer.Event{Type: observer.EventNodeError, NodeName: node.Name, NodeType: node.Type, Error: execErr})

			if node.ContinueOnFail {
				result = executor.Result{
					types.DefaultOutput: types.ItemsValue(types.Items{types.NewItem(map[string]interface{}{
						"error":      execErr.Error(),
						"_errorNode": node.Name,
					})}),
				}
			} else {
				for _, port := range outgoingPorts(workflow, node.Name) {
					nextRunIndex := job.RunIndex
					if port == "loop" {
						nextRunIndex++
					}
					e.fanOut(rc, workflow, &queue, node.Name, port, types.NoOutputValue, nextRunIndex)
				}
				continue
			}
		}

		rc.nodeRunCounts[node.Name]++
		rc.nodeStates[node.Name] = selectMainState(descriptor, result)

		for _, port := range resultPorts(descriptor, result) {
			pv := result[port]
			nextRunIndex := job.RunIndex
			if port == "loop" {
				nextRunIndex++
			}
			e.fanOut(rc, workflow, &queue, node.Name, port, pv, nextRunIndex)
		}

		if rc.nodeRunCounts[node.Name] == 1 {
			completedCount++
			emit(observer.Event{
				Type:     observer.EventNodeComplete,
				NodeName: node.Name,
				NodeType: node.Type,
				Progress: observer.Progress{Completed: completedCount, Total: len(workflow.Nodes)},
			})
		}
	}

	if bounded {
		rc.recordError("", "Execution exceeded maximum iterations")
		emit(observer.Event{Type: observer.EventExecutionError, Error: types.ErrExecutionBounded})
		slog.Warn("execution bounded-aborted")
	}

	endTime := time.Now()
	emit(observer.Event{
		Type: observer.EventExecutionComplete,
		Data: map[string]interface{}{
			"nodeCount":  len(rc.nodeStates),
			"errorCount": len(rc.errors),
			"steps":      steps,
		},
	})
	slog.Info("execution complete")

	return &RunResult{
		ExecutionID: executionID,
		Status:      StatusCompleted,
		Mode:        mode,
		StartTime:   startTime,
		EndTime:     endTime,
		Errors:      rc.errors,
		NodeData:    rc.nodeStates,
	}, nil
}

// runtimeObservers returns the engine's registered observers as a flat
// slice, so a per-run onEvent callback can be merged in without mutating
// the engine's own manager.
func (e *Engine) runtimeObservers() []observer.Observer {
	return e.observerMgr.Observers()
}

// fanOut implements step 10 of the scheduler algorithm for one (port,
// value) pair of a node's result: route NO-OUTPUT only into multi-input
// join buffers (killing single-input successors), enqueue non-empty
// sequences verbatim, and do nothing for a successful-but-empty sequence.
func (e *Engine) fanOut(rc *runContext, workflow *types.Workflow, queue *[]types.ExecutionJob, sourceNode, sourcePort string, pv types.PortValue, nextRunIndex int) {
	targets := workflow.OutgoingFrom(sourceNode, sourcePort)

	if pv.IsNoOutput() {
		for _, conn := range targets {
			targetNode, ok := workflow.NodeByName(conn.TargetNode)
			if !ok {
				continue
			}
			descriptor, hasExecutor := e.registry.Descriptor(targetNode.Type)
			if !hasExecutor {
				continue
			}
			if descriptor.InputCount > 1 || descriptor.InputCount == types.InfiniteInputs {
				edgeKey := sourceNode + ":" + sourcePort
				if e.deliver(rc, workflow, conn.TargetNode, nextRunIndex, edgeKey, types.NoOutputValue) {
					*queue = append(*queue, types.ExecutionJob{NodeName: conn.TargetNode, RunIndex: nextRunIndex})
				}
			}
			// Single-input targets: branch dies, nothing enqueued.
		}
		return
	}

	items := pv.Items()
	if len(items) == 0 {
		return
	}

	for _, conn := range targets {
		targetNode, ok := workflow.NodeByName(conn.TargetNode)
		if !ok {
			continue
		}
		descriptor, hasExecutor := e.registry.Descriptor(targetNode.Type)
		if hasExecutor && (descriptor.InputCount > 1 || descriptor.InputCount == types.InfiniteInputs) {
			edgeKey := sourceNode + ":" + sourcePort
			if e.deliver(rc, workflow, conn.TargetNode, nextRunIndex, edgeKey, types.ItemsValue(items)) {
				*queue = append(*queue, types.ExecutionJob{NodeName: conn.TargetNode, RunIndex: nextRunIndex})
			}
			continue
		}
		*queue = append(*queue, types.ExecutionJob{
			NodeName:     conn.TargetNode,
			Items:        items,
			SourceNode:   sourceNode,
			SourceOutput: sourcePort,
			RunIndex:     nextRunIndex,
		})
	}
}

// deliver writes one edge's contribution into a multi-input node's pending
// join buffer and reports whether that delivery completed readiness (all
// unique incoming edges have now delivered data or NO-OUTPUT). This is
// the mechanism by which a NO-OUTPUT delivery — which never enters the job
// queue on its own — can still trigger the join's dispatch once it is the
// completing delivery.
func (e *Engine) deliver(rc *runContext, workflow *types.Workflow, targetNode string, runIndex int, edgeKey string, pv types.PortValue) bool {
	bucket := rc.pendingBucket(targetNode, runIndex)
	bucket[edgeKey] = pv
	required := len(workflow.UniqueIncomingEdgeKeys(targetNode))
	return required > 0 && len(bucket) == required
}

// toExecutorConfig narrows pkg/config.Config to the executor package's
// capability surface.
func (e *Engine) toExecutorConfig() executor.ExecutorConfig {
	cfg := e.config
	return executor.ExecutorConfig{
		AllowHTTP:            cfg.AllowHTTP,
		AllowPrivateIPs:      cfg.AllowPrivateIPs,
		AllowLocalhost:       cfg.AllowLocalhost,
		AllowLinkLocal:       cfg.AllowLinkLocal,
		AllowCloudMetadata:   cfg.AllowCloudMetadata,
		AllowedDomains:       cfg.AllowedDomains,
		HTTPTimeout:          int64(cfg.HTTPTimeout),
		MaxHTTPRedirects:     cfg.MaxHTTPRedirects,
		MaxResponseSize:      cfg.MaxResponseSize,
		WaitMaxDurationMS:    cfg.WaitMaxDuration.Milliseconds(),
		CodeTimeoutMS:        cfg.CodeTimeout.Milliseconds(),
		CodeMemoryLimitBytes: cfg.CodeMemoryLimitBytes,
	}
}

// ============================================================================
// Small pure helpers
// ============================================================================

// outgoingPorts returns the distinct output ports nodeName has at least one
// connection declared on, in first-seen declaration order.
func outgoingPorts(workflow *types.Workflow, nodeName string) []string {
	var ports []string
	seen := map[string]bool{}
	for _, c := range workflow.Connections {
		if c.SourceNode != nodeName {
			continue
		}
		port := c.NormalizedSourceOutput()
		if !seen[port] {
			seen[port] = true
			ports = append(ports, port)
		}
	}
	return ports
}

// resultPorts orders a result's ports by the descriptor's declared order
// first, then appends any undeclared ports the executor nonetheless
// returned, for deterministic fan-out.
func resultPorts(descriptor types.NodeTypeDescriptor, result executor.Result) []string {
	var ports []string
	seen := map[string]bool{}
	for _, p := range descriptor.OutputPorts {
		if _, ok := result[p]; ok {
			ports = append(ports, p)
			seen[p] = true
		}
	}
	extra := make([]string, 0, len(result))
	for p := range result {
		if !seen[p] {
			extra = append(extra, p)
		}
	}
	sort.Strings(extra)
	return append(ports, extra...)
}

// selectMainState implements step 9: nodeStates[node] := result["main"] if
// present, else the first declared output port that carries items.
func selectMainState(descriptor types.NodeTypeDescriptor, result executor.Result) types.Items {
	if pv, ok := result[types.DefaultOutput]; ok {
		return pv.Items()
	}
	for _, p := range descriptor.OutputPorts {
		if pv, ok := result[p]; ok && !pv.IsNoOutput() && len(pv.Items()) > 0 {
			return pv.Items()
		}
	}
	return nil
}

// flattenPending concatenates a multi-input join buffer's contributions in
// stable (sorted edge key) order. Merge and friends read pendingInputs
// directly and ignore this; it exists so the generic Execute(ctx, node,
// input) signature still carries something sensible for any future
// multi-input executor that wants a plain concatenation.
func flattenPending(bucket map[string]types.PortValue) types.Items {
	keys := make([]string, 0, len(bucket))
	for k := range bucket {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out types.Items
	for _, k := range keys {
		pv := bucket[k]
		if pv.IsNoOutput() {
			continue
		}
		out = append(out, pv.Items()...)
	}
	return out
}

// envSnapshot captures process environment variables at run start for the
// expression engine's $env context field.
func envSnapshot() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}
	return out
}
