package middleware

import (
	"strings"
	"testing"

	"github.com/yesoreyeram/fluxweave/pkg/executor"
	"github.com/yesoreyeram/fluxweave/pkg/types"
)

func itemsWithJSON(json map[string]interface{}) types.Items {
	return types.Items{types.NewItem(json)}
}

// TestSizeLimitMiddleware_InputSizeLimit tests input size limiting
func TestSizeLimitMiddleware_InputSizeLimit(t *testing.T) {
	config := SizeLimitConfig{
		MaxInputSize:     100, // 100 bytes
		EnforceInputSize: true,
	}

	m := NewSizeLimitMiddlewareWithConfig(config)
	node := types.Node{Name: "test", Type: "number"}

	largeInput := itemsWithJSON(map[string]interface{}{"value": strings.Repeat("x", 200)})

	handler := func(ctx executor.ExecutionContext, node types.Node, input types.Items) (executor.Result, error) {
		return resultWithText("ok"), nil
	}

	_, err := m.Process(nil, node, largeInput, handler)
	if err == nil {
		t.Error("expected error for large input, got nil")
	}

	if !strings.Contains(err.Error(), "input size limit exceeded") {
		t.Errorf("expected size limit error, got: %v", err)
	}
}

// TestSizeLimitMiddleware_ResultSizeLimit tests result size limiting
func TestSizeLimitMiddleware_ResultSizeLimit(t *testing.T) {
	config := SizeLimitConfig{
		MaxResultSize:     100, // 100 bytes
		EnforceResultSize: true,
	}

	m := NewSizeLimitMiddlewareWithConfig(config)
	node := types.Node{Name: "test", Type: "number"}

	// Handler returns large result
	handler := func(ctx executor.ExecutionContext, node types.Node, input types.Items) (executor.Result, error) {
		return resultWithText(strings.Repeat("x", 200)), nil
	}

	_, err := m.Process(nil, node, nil, handler)
	if err == nil {
		t.Error("expected error for large result, got nil")
	}

	if !strings.Contains(err.Error(), "result size limit exceeded") {
		t.Errorf("expected result size limit error, got: %v", err)
	}
}

// TestSizeLimitMiddleware_StringLengthLimit tests string length limiting
func TestSizeLimitMiddleware_StringLengthLimit(t *testing.T) {
	config := SizeLimitConfig{
		MaxInputSize:     1000, // Set high enough to not trigger first
		MaxStringLength:  50,
		EnforceInputSize: true,
	}

	m := NewSizeLimitMiddlewareWithConfig(config)
	node := types.Node{Name: "test", Type: "number"}

	input := itemsWithJSON(map[string]interface{}{"value": strings.Repeat("x", 100)})

	handler := func(ctx executor.ExecutionContext, node types.Node, input types.Items) (executor.Result, error) {
		return resultWithText("ok"), nil
	}

	_, err := m.Process(nil, node, input, handler)
	if err == nil {
		t.Error("expected error for long string, got nil")
	}

	if !strings.Contains(err.Error(), "string length") {
		t.Errorf("expected string length error, got: %v", err)
	}
}

// TestSizeLimitMiddleware_ArrayLengthLimit tests array length limiting
func TestSizeLimitMiddleware_ArrayLengthLimit(t *testing.T) {
	config := SizeLimitConfig{
		MaxInputSize:     10000, // Set high enough to not trigger first
		MaxArrayLength:   10,
		EnforceInputSize: true,
	}

	m := NewSizeLimitMiddlewareWithConfig(config)
	node := types.Node{Name: "test", Type: "number"}

	// Create array with 20 elements
	longArray := make([]interface{}, 20)
	for i := 0; i < 20; i++ {
		longArray[i] = i
	}

	input := itemsWithJSON(map[string]interface{}{"value": longArray})

	handler := func(ctx executor.ExecutionContext, node types.Node, input types.Items) (executor.Result, error) {
		return resultWithText("ok"), nil
	}

	_, err := m.Process(nil, node, input, handler)
	if err == nil {
		t.Error("expected error for long array, got nil")
	}

	if !strings.Contains(err.Error(), "array length") {
		t.Errorf("expected array length error, got: %v", err)
	}
}

// TestSizeLimitMiddleware_AllowedInputs tests that allowed inputs pass
func TestSizeLimitMiddleware_AllowedInputs(t *testing.T) {
	m := NewSizeLimitMiddleware()
	node := types.Node{Name: "test", Type: "number"}

	// Small, valid input
	input := itemsWithJSON(map[string]interface{}{"value": "hello", "count": 42, "ok": true})

	executionCount := 0
	handler := func(ctx executor.ExecutionContext, node types.Node, input types.Items) (executor.Result, error) {
		executionCount++
		return resultWithText("ok"), nil
	}

	result, err := m.Process(nil, node, input, handler)
	if err != nil {
		t.Errorf("expected no error for valid inputs, got: %v", err)
	}

	if text, _ := textOf(result); text != "ok" {
		t.Errorf("expected 'ok', got %v", text)
	}

	if executionCount != 1 {
		t.Errorf("expected handler to be called once, got %d", executionCount)
	}
}

// TestSizeLimitMiddleware_DisabledLimits tests with limits disabled
func TestSizeLimitMiddleware_DisabledLimits(t *testing.T) {
	config := SizeLimitConfig{
		MaxInputSize:      10,
		MaxResultSize:     10,
		EnforceInputSize:  false,
		EnforceResultSize: false,
	}

	m := NewSizeLimitMiddlewareWithConfig(config)
	node := types.Node{Name: "test", Type: "number"}

	// Large input and result
	input := itemsWithJSON(map[string]interface{}{"value": strings.Repeat("x", 100)})
	largeResult := strings.Repeat("y", 100)
	handler := func(ctx executor.ExecutionContext, node types.Node, input types.Items) (executor.Result, error) {
		return resultWithText(largeResult), nil
	}

	result, err := m.Process(nil, node, input, handler)
	if err != nil {
		t.Errorf("expected no error with disabled limits, got: %v", err)
	}

	if text, _ := textOf(result); text != largeResult {
		t.Error("result should be returned even if large when limits disabled")
	}
}

// TestSizeLimitMiddleware_Name tests the Name method
func TestSizeLimitMiddleware_Name(t *testing.T) {
	m := NewSizeLimitMiddleware()

	if m.Name() != "SizeLimit" {
		t.Errorf("expected 'SizeLimit', got %s", m.Name())
	}
}

// TestValidateWorkflowSize_NodeCount tests node count validation
func TestValidateWorkflowSize_NodeCount(t *testing.T) {
	config := SizeLimitConfig{
		MaxNodeCount: 5,
	}

	// Create 10 nodes
	nodes := make([]types.Node, 10)
	for i := 0; i < 10; i++ {
		nodes[i] = types.Node{Name: string(rune('a' + i)), Type: "number"}
	}

	err := ValidateWorkflowSize(nodes, []types.Connection{}, config)
	if err == nil {
		t.Error("expected error for too many nodes, got nil")
	}

	if !strings.Contains(err.Error(), "nodes") {
		t.Errorf("expected node count error, got: %v", err)
	}
}

// TestValidateWorkflowSize_EdgeCount tests connection count validation
func TestValidateWorkflowSize_EdgeCount(t *testing.T) {
	config := SizeLimitConfig{
		MaxEdgeCount: 5,
	}

	nodes := []types.Node{
		{Name: "1", Type: "number"},
		{Name: "2", Type: "number"},
	}

	// Create 10 connections
	connections := make([]types.Connection, 10)
	for i := 0; i < 10; i++ {
		connections[i] = types.Connection{SourceNode: "1", TargetNode: "2"}
	}

	err := ValidateWorkflowSize(nodes, connections, config)
	if err == nil {
		t.Error("expected error for too many edges, got nil")
	}

	if !strings.Contains(err.Error(), "edges") {
		t.Errorf("expected edge count error, got: %v", err)
	}
}

// TestValidateWorkflowSize_ValidWorkflow tests valid workflow passes
func TestValidateWorkflowSize_ValidWorkflow(t *testing.T) {
	config := DefaultSizeLimitConfig()

	nodes := []types.Node{
		{Name: "1", Type: "number"},
		{Name: "2", Type: "number"},
		{Name: "3", Type: "number"},
	}

	connections := []types.Connection{
		{SourceNode: "1", TargetNode: "2"},
		{SourceNode: "2", TargetNode: "3"},
	}

	err := ValidateWorkflowSize(nodes, connections, config)
	if err != nil {
		t.Errorf("expected no error for valid workflow, got: %v", err)
	}
}

// TestSizeLimitMiddleware_NestedStructures tests nested data validation
func TestSizeLimitMiddleware_NestedStructures(t *testing.T) {
	config := SizeLimitConfig{
		MaxInputSize:     1000, // Set high enough to not trigger first
		MaxStringLength:  20,
		EnforceInputSize: true,
	}

	m := NewSizeLimitMiddlewareWithConfig(config)
	node := types.Node{Name: "test", Type: "number"}

	// Nested structure with long string
	input := itemsWithJSON(map[string]interface{}{
		"outer": map[string]interface{}{
			"inner": strings.Repeat("x", 50), // Exceeds limit
		},
	})

	handler := func(ctx executor.ExecutionContext, node types.Node, input types.Items) (executor.Result, error) {
		return resultWithText("ok"), nil
	}

	_, err := m.Process(nil, node, input, handler)
	if err == nil {
		t.Error("expected error for nested string exceeding limit, got nil")
	}
}
