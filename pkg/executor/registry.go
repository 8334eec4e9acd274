package executor

import (
	"fmt"
	"sync"

	"github.com/yesoreyeram/fluxweave/pkg/types"
)

// Registry manages node executor registration and lookup. Thread-safe.
type Registry struct {
	executors map[string]NodeExecutor
	mu        sync.RWMutex
}

// NewRegistry creates a new executor registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]NodeExecutor)}
}

// Register adds an executor to the registry. Returns an error if an
// executor for this type already exists.
func (r *Registry) Register(exec NodeExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	nodeType := exec.NodeType()
	if _, exists := r.executors[nodeType]; exists {
		return fmt.Errorf("executor already registered for type: %s", nodeType)
	}
	r.executors[nodeType] = exec
	return nil
}

// MustRegister registers an executor and panics on error. Used during
// registry construction where registration must succeed.
func (r *Registry) MustRegister(exec NodeExecutor) {
	if err := r.Register(exec); err != nil {
		panic(err)
	}
}

// Execute dispatches to the executor registered for node.Type.
func (r *Registry) Execute(ctx ExecutionContext, node types.Node, input types.Items) (Result, error) {
	exec, exists := r.get(node.Type)
	if !exists {
		return nil, &types.UnknownNodeTypeError{NodeType: node.Type}
	}
	return exec.Execute(ctx, node, input)
}

// Validate validates a node using its registered executor.
func (r *Registry) Validate(node types.Node) error {
	exec, exists := r.get(node.Type)
	if !exists {
		return &types.UnknownNodeTypeError{NodeType: node.Type}
	}
	return exec.Validate(node)
}

// GetExecutor returns the executor for a given node type, or nil.
func (r *Registry) GetExecutor(nodeType string) NodeExecutor {
	exec, _ := r.get(nodeType)
	return exec
}

// Descriptor returns the registry metadata for a node type, and whether it
// was found.
func (r *Registry) Descriptor(nodeType string) (types.NodeTypeDescriptor, bool) {
	exec, ok := r.get(nodeType)
	if !ok {
		return types.NodeTypeDescriptor{}, false
	}
	return exec.Descriptor(), true
}

// Has reports whether a type is registered.
func (r *Registry) Has(nodeType string) bool {
	_, exists := r.get(nodeType)
	return exists
}

func (r *Registry) get(nodeType string) (NodeExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executors[nodeType]
	return exec, ok
}

// ListRegisteredTypes returns all registered node types.
func (r *Registry) ListRegisteredTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.executors))
	for nodeType := range r.executors {
		out = append(out, nodeType)
	}
	return out
}
