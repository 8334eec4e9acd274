// Package executor provides the Strategy Pattern implementation for node
// execution: a uniform contract (spec.md §4.D) that lets the runner treat
// heterogeneous node kinds uniformly, plus a thread-safe Registry mapping
// node type to executor.
package executor

import (
	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// ExecutionContext is the narrow capability surface a node executor gets
// into the per-run state, breaking the circular dependency between this
// package and pkg/engine.
type ExecutionContext interface {
	// NodeOutput returns another node's last main-output items, for
	// $node["Name"] expression resolution and for multi-input executors
	// that need to read sibling state.
	NodeOutput(nodeName string) (types.Items, bool)

	// InternalState gets/sets this node's own opaque per-run state (used
	// by SplitInBatches to track progress across loop iterations).
	// Executors MUST NOT read or write another node's internal state.
	GetInternalState(nodeName string) (interface{}, bool)
	SetInternalState(nodeName string, value interface{})
	ClearInternalState(nodeName string)

	// PendingInputs exposes a multi-input node's join buffer for the
	// current run index, keyed by "<sourceNode>:<sourceOutput>". Merge is
	// responsible for reading and clearing its own bucket.
	PendingInputs(nodeName string, runIndex int) map[string]types.PortValue
	ClearPendingInputs(nodeName string, runIndex int)

	// CurrentRunIndex is the loop run index of the job the runner is
	// currently dispatching, so a multi-input executor can address its own
	// PendingInputs bucket without the runner threading runIndex through
	// every Execute call.
	CurrentRunIndex() int

	ExecutionID() string
	Mode() types.ExecutionMode

	Config() ExecutorConfig

	// ResolveParameters evaluates every "{{ }}" expression in params against
	// the current item (spec.md §4.B: $json is the current item, $itemIndex
	// its position in the input sequence). Executors that are
	// item-sensitive (If, Switch, Set, HTTP, LLM) call this once per item;
	// executors that treat their parameters as constant for the whole input
	// sequence (Wait, Merge, SplitInBatches) call it once with an empty item.
	ResolveParameters(params map[string]interface{}, item types.Item, itemIndex int) map[string]interface{}
}

// ExecutorConfig is the subset of pkg/config.Config node executors need,
// kept narrow so this package does not import pkg/config directly.
type ExecutorConfig struct {
	AllowHTTP            bool
	AllowPrivateIPs      bool
	AllowLocalhost       bool
	AllowLinkLocal       bool
	AllowCloudMetadata   bool
	AllowedDomains       []string
	HTTPTimeout          int64 // nanoseconds, avoids a time import at this boundary
	MaxHTTPRedirects     int
	MaxResponseSize      int64
	WaitMaxDurationMS    int64
	CodeTimeoutMS        int64
	CodeMemoryLimitBytes int64
}

// Result is what Execute returns: a map of output port name to PortValue.
// A missing port is treated as an empty sequence (no fan-out on that port).
type Result map[string]types.PortValue

// NodeExecutor defines the interface every node type implements.
type NodeExecutor interface {
	// Execute runs the node against its resolved parameters and input
	// items, returning the per-port result.
	Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error)

	// NodeType returns the registry key this executor handles.
	NodeType() string

	// Validate checks static node configuration, independent of any run.
	Validate(node types.Node) error

	// Descriptor returns this type's registry metadata: input arity,
	// declared output ports, and (optionally) a parameter JSON Schema.
	Descriptor() types.NodeTypeDescriptor
}
