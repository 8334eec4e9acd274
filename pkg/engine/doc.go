// Package engine drives a Workflow (pkg/types) to quiescence: a FIFO job
// queue, one dequeue at a time, with multi-input joins keyed by unique
// (sourceNode, sourceOutput) edges and loop-aware run indices.
//
// # Basic usage
//
//	eng := engine.New()
//	result, err := eng.Run(ctx, workflow, "Start", nil, types.ModeManual, nil)
//
// Engine is safe to reuse across concurrent runs — all per-run mutable
// state lives in an internal runContext created fresh by Run.
package engine
