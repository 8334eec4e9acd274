// Package types provides shared type definitions for the FluxWeave workflow
// engine.
//
// # Overview
//
// This package contains the core data structures used across the engine —
// Item, Node, Connection, Workflow, and the NO-OUTPUT sentinel — so that
// downstream packages can depend on a single shared vocabulary without
// circular imports.
//
// # Key Components
//
// Workflow model: Workflow, Node, Connection, NodeTypeDescriptor.
//
// Data flow: Item, Items, PortValue (the NO-OUTPUT-aware tagged union
// every node executor returns per port).
//
// Scheduling: ExecutionJob, the unit the runner's FIFO queue holds.
//
// # Design Principles
//
//   - Minimal dependencies: this package imports nothing from the rest of
//     the engine.
//   - NO-OUTPUT is a distinct type, not a nil slice, so it cannot be
//     produced by accident.
//   - Nodes carry a generic parameter map, not a typed-per-kind struct —
//     parameter shape is a registry concern (pkg/executor), not a type
//     system concern.
package types
