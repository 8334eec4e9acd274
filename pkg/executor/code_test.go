package executor

import (
	"testing"

	"github.com/yesoreyeram/fluxweave/pkg/types"
)

func TestCodeExecutor_ValidateRequiresScript(t *testing.T) {
	exec := NewCodeExecutor()
	if err := exec.Validate(types.Node{Name: "Code"}); err == nil {
		t.Fatal("expected an error for a missing script parameter")
	}
	if err := exec.Validate(types.Node{Name: "Code", Parameters: map[string]interface{}{"script": "1+1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCodeExecutor_ReturnsObjectAsSingleItem(t *testing.T) {
	exec := NewCodeExecutor()
	node := types.Node{
		Name:       "Code",
		Parameters: map[string]interface{}{"script": `({greeting: "hi " + $json.name})`},
	}
	ctx := &mockExecutionContext{config: ExecutorConfig{CodeTimeoutMS: 1000}}
	input := types.Items{types.NewItem(map[string]interface{}{"name": "Ada"})}

	result, err := exec.Execute(ctx, node, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := result[types.DefaultOutput].Items()
	if len(items) != 1 {
		t.Fatalf("expected one item on the main port, got %+v", result)
	}
	if items[0].JSON["greeting"] != "hi Ada" {
		t.Errorf("got %v", items[0].JSON)
	}
}

func TestCodeExecutor_ReturnsArrayOfObjects(t *testing.T) {
	exec := NewCodeExecutor()
	node := types.Node{
		Name:       "Code",
		Parameters: map[string]interface{}{"script": `items.map(function(it) { return {json: {doubled: it.value * 2}}; })`},
	}
	ctx := &mockExecutionContext{config: ExecutorConfig{CodeTimeoutMS: 1000}}
	input := types.Items{
		types.NewItem(map[string]interface{}{"value": 1.0}),
		types.NewItem(map[string]interface{}{"value": 2.0}),
	}

	result, err := exec.Execute(ctx, node, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := result[types.DefaultOutput].Items()
	if len(items) != 2 {
		t.Fatalf("expected two items, got %+v", result)
	}
	if items[0].JSON["doubled"] != int64(2) && items[0].JSON["doubled"] != 2.0 {
		t.Errorf("got %v", items[0].JSON)
	}
}

func TestCodeExecutor_TimesOut(t *testing.T) {
	exec := NewCodeExecutor()
	node := types.Node{
		Name:       "Code",
		Parameters: map[string]interface{}{"script": `while (true) {}`},
	}
	ctx := &mockExecutionContext{config: ExecutorConfig{CodeTimeoutMS: 50}}

	_, err := exec.Execute(ctx, node, nil)
	if err == nil {
		t.Fatal("expected a timeout error")
	}
}

func TestCodeExecutor_RuntimeErrorIsReturned(t *testing.T) {
	exec := NewCodeExecutor()
	node := types.Node{
		Name:       "Code",
		Parameters: map[string]interface{}{"script": `undefinedFunctionCall()`},
	}
	ctx := &mockExecutionContext{config: ExecutorConfig{CodeTimeoutMS: 1000}}

	_, err := exec.Execute(ctx, node, nil)
	if err == nil {
		t.Fatal("expected an error for a reference to an undefined function")
	}
}
