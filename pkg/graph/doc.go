// Package graph provides the structural validation the runner requires
// before a workflow is accepted, plus the terminal-node lookup used by the
// webhook "lastNode" response mode. It intentionally does not impose
// a topological execution order: loop ports make cycles legitimate, and
// ordering is instead the job of the FIFO job queue in pkg/engine.
package graph
