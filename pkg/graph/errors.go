package graph

import "errors"

// Sentinel errors for graph lookups.
var (
	ErrNodeNotFound     = errors.New("node not found in graph")
	ErrInvalidStartNode = errors.New("invalid start node")
)
