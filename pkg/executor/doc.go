// Package executor provides node execution implementations for the workflow engine.
//
// # Overview
//
// This package implements the execution logic for every built-in node type of
// the fluxweave workflow engine. Each node type has a dedicated executor.
//
// # Node Executor Architecture
//
// Executors implement the NodeExecutor interface:
//
//	type NodeExecutor interface {
//	    Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error)
//	    NodeType() string
//	    Validate(node types.Node) error
//	    Descriptor() types.NodeTypeDescriptor
//	}
//
// Execute returns a Result: a map from output port name to a PortValue,
// which is either a sequence of items or the NO-OUTPUT marker.
//
// # Node Types
//
// Triggers (zero inputs; input items pass through on main):
//   - start, webhook, cron, errorTrigger
//
// Data and control flow:
//   - set: field assignments, JSON merge, delete and rename by dot path
//   - if: routes each item to the "true" or "false" port
//   - switch: rules or expression routing to outputN ports and a fallback port
//   - merge: multi-input join (append, waitForAll, keepMatches, combinePairs)
//   - splitInBatches: batch loop with "loop" and "done" ports
//   - wait: sleeps for a duration clamped to the configured maximum
//
// External calls and scripting:
//   - http: one outbound HTTP request per input item, through a pooled
//     default client or a named client from pkg/httpnode
//   - code: JavaScript in a goja VM with a wall-clock timeout and an
//     approximate memory cap
//   - llmChat, aiAgent: HTTP calls to a generative-language API
//
// # Registry System
//
// Executors are registered in a Registry keyed by their NodeType():
//
//	registry := executor.NewRegistry()
//	registry.MustRegister(executor.NewSetExecutor())
//	registry.MustRegister(executor.NewIfExecutor())
//
// NewBuiltinRegistry returns a Registry preloaded with every built-in type.
// Register returns an error for a type that is already registered.
//
// # Expression Integration
//
// Executors call ExecutionContext.ResolveParameters to evaluate "{{ }}"
// expressions in their parameters before using them.
//
// # Thread Safety
//
// Registry is safe for concurrent use. The built-in executors keep no
// per-run state of their own (SplitInBatches keeps its progress in the
// ExecutionContext); the HTTP executor guards its cached client with a
// mutex.
//
// # Custom Executors
//
// To create a custom executor, implement NodeExecutor and register it:
//
//	type CustomExecutor struct{}
//
//	func (e *CustomExecutor) NodeType() string { return "custom" }
//	func (e *CustomExecutor) Validate(node types.Node) error { return nil }
//	func (e *CustomExecutor) Descriptor() types.NodeTypeDescriptor {
//	    return types.NodeTypeDescriptor{Type: "custom", InputCount: 1, OutputPorts: []string{types.DefaultOutput}}
//	}
//	func (e *CustomExecutor) Execute(ctx executor.ExecutionContext, node types.Node, input types.Items) (executor.Result, error) {
//	    return executor.Result{types.DefaultOutput: types.ItemsValue(input)}, nil
//	}
//
//	registry.MustRegister(&CustomExecutor{})
package executor
