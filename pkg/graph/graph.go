// Package graph provides workflow-shape validation and terminal-node lookup.
//
// Unlike a classic DAG scheduler, the runner this package supports permits
// cycles (loop ports route back deliberately), so there is deliberately no
// topological sort here — only the structural checks spec.md §4.A requires
// at submission time, plus the terminal-node lookup spec §6's "lastNode"
// webhook response mode needs. Adjacency lookups over a live workflow
// (by-name, by-port) belong to types.Workflow itself, which the runner
// already uses on every step; this package does not duplicate them.
package graph

import (
	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// DescriptorLookup resolves a node type to its registry descriptor, the
// same shape pkg/executor.Registry.Descriptor exposes — kept as a function
// type here so pkg/graph does not need to import pkg/executor.
type DescriptorLookup func(nodeType string) (types.NodeTypeDescriptor, bool)

// Validate checks the structural invariants spec.md §4.A requires at
// submission time: non-blank and unique node names, known connection
// endpoints, retryOnFail in 0..10, and non-negative retryDelay. Cycles are
// explicitly NOT rejected — looping is legitimate.
func Validate(w *types.Workflow) error {
	return ValidateWithRegistry(w, nil)
}

// ValidateWithRegistry performs the same checks as Validate, and
// additionally — when lookup is non-nil — validates each node's parameters,
// as submitted and before any expression is resolved, against its
// registry-declared parameter schema (a
// SPEC_FULL.md addition layered on top of the core structural checks).
func ValidateWithRegistry(w *types.Workflow, lookup DescriptorLookup) error {
	if w == nil {
		return types.NewValidationError("workflow is nil")
	}
	if len(w.Nodes) == 0 {
		return types.NewValidationError("workflow has no nodes")
	}

	seen := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		if n.Name == "" {
			return types.NewValidationError("node name must not be blank")
		}
		if seen[n.Name] {
			return types.NewValidationError("duplicate node name: %s", n.Name)
		}
		seen[n.Name] = true
		if n.RetryOnFail < 0 || n.RetryOnFail > 10 {
			return types.NewValidationError("node %s: retryOnFail must be in 0..10, got %d", n.Name, n.RetryOnFail)
		}
		if n.RetryDelayMS < 0 {
			return types.NewValidationError("node %s: retryDelay must be >= 0, got %d", n.Name, n.RetryDelayMS)
		}
		if lookup != nil {
			descriptor, ok := lookup(n.Type)
			if !ok {
				return &types.UnknownNodeTypeError{NodeType: n.Type}
			}
			if err := ValidateParameters(n.Parameters, descriptor.ParameterSchema); err != nil {
				return types.NewValidationError("node %s: %v", n.Name, err)
			}
		}
	}

	for _, c := range w.Connections {
		if !seen[c.SourceNode] {
			return types.NewValidationError("connection references unknown source node: %s", c.SourceNode)
		}
		if !seen[c.TargetNode] {
			return types.NewValidationError("connection references unknown target node: %s", c.TargetNode)
		}
	}

	return nil
}

// TerminalNodes returns, in workflow node order, the names of every node
// with no outgoing connections — the candidates spec §6's "lastNode"
// webhook response mode reports from.
func TerminalNodes(w *types.Workflow) []string {
	if w == nil {
		return nil
	}
	hasOutgoing := make(map[string]bool, len(w.Nodes))
	for _, c := range w.Connections {
		hasOutgoing[c.SourceNode] = true
	}
	result := make([]string, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		if !hasOutgoing[n.Name] {
			result = append(result, n.Name)
		}
	}
	return result
}
